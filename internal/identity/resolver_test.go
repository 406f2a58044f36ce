package identity

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeHost implements Host for tests.
type fakeHost struct {
	restID     string
	convertErr error
	lookupID   string
	lookupErr  error
}

func (h *fakeHost) ConvertToRestID(_ context.Context, nativeID string) (string, error) {
	if h.convertErr != nil {
		return "", h.convertErr
	}
	return h.restID, nil
}

func (h *fakeHost) LookupMessageID(_ context.Context, nativeID string) (string, error) {
	if h.lookupErr != nil {
		return "", h.lookupErr
	}
	return h.lookupID, nil
}

func TestResolvePriorityOrder(t *testing.T) {
	tests := []struct {
		name string
		host Host
		item MailItem
		want string
	}{
		{
			name: "REST conversion wins over everything",
			host: &fakeHost{restID: "rest-id-1"},
			item: MailItem{
				NativeID:          "native-1",
				ConversationID:    "conv-1",
				InternetMessageID: "<imid@example.com>",
			},
			want: "rest-id-1",
		},
		{
			name: "conversation ID when conversion unavailable",
			host: &fakeHost{convertErr: ErrCapabilityUnavailable},
			item: MailItem{
				NativeID:       "native-1",
				ConversationID: "conv-1",
			},
			want: "conv-1",
		},
		{
			name: "conversation ID when no host at all",
			item: MailItem{
				NativeID:       "native-1",
				ConversationID: "conv-1",
			},
			want: "conv-1",
		},
		{
			name: "native ID when conversion throws and no conversation",
			host: &fakeHost{convertErr: errors.New("boom")},
			item: MailItem{NativeID: "native-1"},
			want: "native-1",
		},
		{
			name: "internet message ID as last client-supplied resort",
			item: MailItem{InternetMessageID: "imid@example.com"},
			want: "imid@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.host, nil)
			res := r.Resolve(context.Background(), tt.item)
			if got := res.Identity.FinalID; got != tt.want {
				t.Errorf("FinalID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveRestIDReturnedUnchanged(t *testing.T) {
	// A REST ID without URL token and without colon passes through untouched.
	r := NewResolver(&fakeHost{restID: "AQMkADAwATM0MDAAMS"}, nil)
	res := r.Resolve(context.Background(), MailItem{NativeID: "native-1"})
	if res.Identity.FinalID != "AQMkADAwATM0MDAAMS" {
		t.Errorf("FinalID = %q, want REST ID unchanged", res.Identity.FinalID)
	}
	if res.Identity.RestID != "AQMkADAwATM0MDAAMS" {
		t.Errorf("RestID = %q not recorded", res.Identity.RestID)
	}
}

func TestResolveURLTokenExtraction(t *testing.T) {
	tests := []struct {
		name string
		host Host
		item MailItem
		want string
	}{
		{
			name: "token inside REST candidate",
			host: &fakeHost{restID: "prefix-AAkALgAAAAAAHYQD-suffix"},
			item: MailItem{NativeID: "native-1"},
			want: "AAkALgAAAAAAHYQD", // the token class excludes '-'
		},
		{
			name: "token after a colon beats colon stripping",
			item: MailItem{ConversationID: "Outlook:AAkALgAAAAAAHYQD"},
			want: "AAkALgAAAAAAHYQD",
		},
		{
			name: "token in page URL rescues a plain candidate",
			item: MailItem{
				NativeID: "plain-native-id",
				PageURL:  "https://outlook.example.com/mail/id/AAkALgAAAAAAHYQD%3D",
			},
			want: "AAkALgAAAAAAHYQD%3D",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.host, nil)
			res := r.Resolve(context.Background(), tt.item)
			got := res.Identity.FinalID
			if !strings.HasPrefix(got, "AAkAL") {
				t.Fatalf("FinalID = %q, want URL token", got)
			}
			if got != res.Identity.ExtractedURLFormatID {
				t.Errorf("FinalID %q != ExtractedURLFormatID %q", got, res.Identity.ExtractedURLFormatID)
			}
			if got != tt.want {
				t.Errorf("FinalID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveColonStripping(t *testing.T) {
	r := NewResolver(nil, nil)
	res := r.Resolve(context.Background(), MailItem{ConversationID: "EWS:ID:xxxxx"})
	if res.Identity.FinalID != "xxxxx" {
		t.Errorf("FinalID = %q, want text after last colon", res.Identity.FinalID)
	}
}

func TestResolveSyntheticID(t *testing.T) {
	item := MailItem{
		Mailbox:     "a@x.com",
		HostName:    "Contoso",
		Timestamp:   "2024-01-01T00:00:00Z",
		Subject:     "Hi",
		SenderEmail: "b@y.com",
	}

	r := NewResolver(nil, nil)
	res := r.Resolve(context.Background(), item)
	got := res.Identity.FinalID

	raw := "a@x.com::Contoso::2024-01-01T00:00:00Z::Hi::b@y.com"
	want := "generated-" + strings.TrimRight(base64.StdEncoding.EncodeToString([]byte(raw)), "=")
	if got != want {
		t.Errorf("synthetic FinalID = %q, want %q", got, want)
	}

	// Deterministic: same inputs, same identifier.
	again := r.Resolve(context.Background(), item)
	if again.Identity.FinalID != got {
		t.Error("synthetic ID not deterministic")
	}

	// Sensitive to every component.
	for _, mutate := range []func(*MailItem){
		func(m *MailItem) { m.Mailbox = "c@x.com" },
		func(m *MailItem) { m.HostName = "Fabrikam" },
		func(m *MailItem) { m.Timestamp = "2024-01-02T00:00:00Z" },
		func(m *MailItem) { m.Subject = "Hello" },
		func(m *MailItem) { m.SenderEmail = "d@y.com" },
	} {
		changed := item
		mutate(&changed)
		if r.Resolve(context.Background(), changed).Identity.FinalID == got {
			t.Error("changing a synthetic component should change the identifier")
		}
	}
}

func TestResolveUnidentifiable(t *testing.T) {
	r := NewResolver(nil, nil)
	res := r.Resolve(context.Background(), MailItem{})
	if res.Identity.Identifiable() {
		t.Errorf("FinalID = %q, want unidentifiable", res.Identity.FinalID)
	}
}

func TestResolveUpgradeChannel(t *testing.T) {
	t.Run("delivers upgraded identifier", func(t *testing.T) {
		r := NewResolver(&fakeHost{restID: "rest-1", lookupID: "authoritative-1"}, nil)
		res := r.Resolve(context.Background(), MailItem{NativeID: "native-1"})

		select {
		case upgraded, ok := <-res.Upgrade:
			if !ok {
				t.Fatal("upgrade channel closed without a value")
			}
			if upgraded != "authoritative-1" {
				t.Errorf("upgrade = %q, want %q", upgraded, "authoritative-1")
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for upgrade")
		}

		// Channel is one-shot and closed afterwards.
		if _, ok := <-res.Upgrade; ok {
			t.Error("upgrade channel should be closed after delivery")
		}
	})

	t.Run("closes without value on lookup failure", func(t *testing.T) {
		r := NewResolver(&fakeHost{restID: "rest-1", lookupErr: errors.New("network down")}, nil)
		res := r.Resolve(context.Background(), MailItem{NativeID: "native-1"})

		select {
		case _, ok := <-res.Upgrade:
			if ok {
				t.Error("expected closed channel, got a value")
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for channel close")
		}
	})

	t.Run("closed immediately without host", func(t *testing.T) {
		r := NewResolver(nil, nil)
		res := r.Resolve(context.Background(), MailItem{ConversationID: "conv-1"})
		if _, ok := <-res.Upgrade; ok {
			t.Error("expected closed channel when no host is available")
		}
	})
}

func TestResolveDeterministicSynchronousPath(t *testing.T) {
	item := MailItem{
		NativeID:       "native-1",
		ConversationID: "conv-1",
	}
	r := NewResolver(&fakeHost{restID: "rest-1"}, nil)
	a := r.Resolve(context.Background(), item).Identity
	b := r.Resolve(context.Background(), item).Identity
	if a != b {
		t.Errorf("synchronous resolution not deterministic: %+v vs %+v", a, b)
	}
}
