package storage

import "testing"

func TestContentTypeForPath(t *testing.T) {
	cases := map[string]string{
		"/tmp/deck_abc.pdf":  "application/pdf",
		"/tmp/deck_abc.pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"/tmp/deck_abc.html": "text/html; charset=utf-8",
		"/tmp/deck_abc.mp4":  "video/mp4",
		"/tmp/deck_abc.PDF":  "application/pdf",
		"/tmp/deck_abc.bin":  "application/octet-stream",
	}
	for in, want := range cases {
		if got := ContentTypeForPath(in); got != want {
			t.Fatalf("ContentTypeForPath(%q) = %q, want %q", in, got, want)
		}
	}
}
