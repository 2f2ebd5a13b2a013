package inputval

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "田中太郎", "田中太郎"},
		{"trims whitespace", "  田中太郎  ", "田中太郎"},
		{"strips tags", "<b>田中</b>太郎", "田中太郎"},
		{"strips script", `<script>alert("x")</script>営業部`, "営業部"},
		{"empty", "", ""},
		{"only markup", "<img src=x onerror=alert(1)>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanMultiline(t *testing.T) {
	in := "一行目 <b>太字</b>  \n二行目\r\n\n<script>x</script>三行目"
	want := "一行目 太字\n二行目\n\n三行目"
	if got := CleanMultiline(in); got != want {
		t.Errorf("CleanMultiline = %q, want %q", got, want)
	}
}

func TestCleanMultiline_TrimsOuterWhitespace(t *testing.T) {
	if got := CleanMultiline("\n\n  メモ  \n\n"); got != "メモ" {
		t.Errorf("CleanMultiline = %q, want %q", got, "メモ")
	}
}
