package textutil

import "testing"

func TestNormalizeJobDescription(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text",
			in:   "  Frontend   developer\r\n\r\n\r\n\r\nReact  and TypeScript  ",
			want: "Frontend developer\n\nReact and TypeScript",
		},
		{
			name: "html blocks",
			in:   "<h2>Frontend Developer</h2><p>We use <b>React</b>.</p><ul><li>TypeScript</li><li>Git</li></ul><script>track()</script>",
			want: "Frontend Developer\nWe use React.\n- TypeScript\n- Git",
		},
		{
			name: "inline html only",
			in:   "<div>Go <span>engineer</span></div>",
			want: "Go engineer",
		},
		{
			name: "comparison is not a tag",
			in:   "experience < 2 years > 0",
			want: "experience < 2 years > 0",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeJobDescription(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
