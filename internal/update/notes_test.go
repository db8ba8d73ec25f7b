package update

import "testing"

func TestNormalizeNotes(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{
			name: "paragraphs and link",
			raw:  `<p>Fixed <b>bug</b></p><p>See <a href="http://x">docs</a></p>`,
			want: "Fixed bug\nSee docs (http://x)",
		},
		{
			name: "plain text passes through",
			raw:  "  Fixed a crash when exporting.\nFaster search.  ",
			want: "Fixed a crash when exporting.\nFaster search.",
		},
		{
			name: "angle brackets without known tags stay plain",
			raw:  "a <b> c > d",
			want: "a <b> c > d",
		},
		{
			name: "lists and breaks",
			raw:  "<h2>Changes</h2><ul><li>One</li><li>Two<br>lines</li></ul>",
			want: "Changes\n- One\n- Two\nlines",
		},
		{
			name: "scripts and styles dropped",
			raw:  "<div>Keep</div><script>alert('x')</script><style>p{}</style><p>this</p>",
			want: "Keep\nthis",
		},
		{
			name: "entities decoded",
			raw:  "<p>Tom &amp; Jerry&nbsp;&lt;3 &#39;quoted&#39; &#x4E2D;&#25991;</p>",
			want: "Tom & Jerry <3 'quoted' 中文",
		},
		{
			name: "anchor without text or href",
			raw:  `<p><a href="https://example.com/r"></a> and <a>bare</a></p>`,
			want: "https://example.com/r and bare",
		},
		{
			name: "blank lines collapse",
			raw:  "<p>a</p><br><br><br><br><p>b</p>",
			want: "a\n\nb",
		},
		{
			name: "per-version list",
			raw: []NoteEntry{
				{Version: "1.2.0", Note: "<p>New export</p>"},
				{Version: "1.1.9", Note: "Bug fixes"},
				{Version: "", Note: nil},
			},
			want: "v1.2.0\nNew export\n\nv1.1.9\nBug fixes",
		},
		{
			name: "decoded yaml list",
			raw: []any{
				map[string]any{"version": "2.0.0", "note": "Major"},
				map[string]any{"note": "Unversioned"},
			},
			want: "v2.0.0\nMajor\n\nUnversioned",
		},
		{
			name: "other values render as JSON",
			raw:  map[string]any{"summary": "x"},
			want: "{\n  \"summary\": \"x\"\n}",
		},
		{name: "nil", raw: nil, want: ""},
		{name: "empty string", raw: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeNotes(tt.raw); got != tt.want {
				t.Fatalf("NormalizeNotes() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeNotesIsIdempotentOnPlainText(t *testing.T) {
	once := NormalizeNotes(`<p>Fixed <b>bug</b></p><p>See <a href="http://x">docs</a></p>`)
	if twice := NormalizeNotes(once); twice != once {
		t.Fatalf("second pass changed text: %q -> %q", once, twice)
	}
}
