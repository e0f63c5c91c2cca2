package emoji

import "testing"

func TestGetEmoji(t *testing.T) {
	t.Cleanup(func() { SetEmojiDisabled(false) })

	SetEmojiDisabled(false)
	if got := GetEmoji("model"); got != "🧠" {
		t.Errorf("GetEmoji(model) = %q, want 🧠", got)
	}

	SetEmojiDisabled(true)
	if !IsEmojiDisabled() {
		t.Error("Expected emoji to be disabled")
	}
	if got := GetEmoji("model"); got != "[SVD]" {
		t.Errorf("GetEmoji(model) with emoji disabled = %q, want [SVD]", got)
	}
	if got := GetEmoji("no-such-key"); got != "[?]" {
		t.Errorf("GetEmoji(unknown) = %q, want [?]", got)
	}
}
