package input

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
)

// answers returns a ValueFunc that replies with values in order and
// records the names it was asked for.
func answers(values ...string) (ValueFunc, *[]string) {
	var asked []string
	return func(_ context.Context, name string) (string, error) {
		asked = append(asked, name)
		if len(asked) > len(values) {
			return "", errors.New("unexpected prompt for " + name)
		}
		return values[len(asked)-1], nil
	}, &asked
}

func TestResolveURI(t *testing.T) {
	tests := []struct {
		name      string
		template  string
		values    []string
		want      string
		wantAsked []string
	}{
		{
			name:     "no placeholders",
			template: "config://app",
			want:     "config://app",
		},
		{
			name:      "two placeholders",
			template:  "users/{userId}/posts/{postId}",
			values:    []string{"42", "7"},
			want:      "users/42/posts/7",
			wantAsked: []string{"userId", "postId"},
		},
		{
			name:      "space in query",
			template:  "search?q={query}",
			values:    []string{"a b"},
			want:      "search?q=a%20b",
			wantAsked: []string{"query"},
		},
		{
			name:      "repeated name asked per occurrence",
			template:  "{id}/{id}",
			values:    []string{"a", "b"},
			want:      "a/b",
			wantAsked: []string{"id", "id"},
		},
		{
			name:      "reserved characters",
			template:  "files/{path}",
			values:    []string{"dir/a?b#c&d=e"},
			want:      "files/dir%2Fa%3Fb%23c%26d%3De",
			wantAsked: []string{"path"},
		},
		{
			name:      "value that looks like a placeholder",
			template:  "{a}-{b}",
			values:    []string{"{b}", "x"},
			want:      "%7Bb%7D-x",
			wantAsked: []string{"a", "b"},
		},
		{
			name:     "empty braces are not a placeholder",
			template: "x/{}",
			want:     "x/{}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ask, asked := answers(tt.values...)

			got, err := ResolveURI(context.Background(), tt.template, ask)
			if err != nil {
				t.Fatalf("ResolveURI() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveURI() = %q, want %q", got, tt.want)
			}
			if strings.Join(*asked, ",") != strings.Join(tt.wantAsked, ",") {
				t.Errorf("asked %v, want %v", *asked, tt.wantAsked)
			}
		})
	}
}

func TestResolveURI_NoBracesRemain(t *testing.T) {
	templates := []string{
		"a/{x}",
		"{x}{y}{z}",
		"mail://{user}@{host}/{folder}?since={date}",
	}

	for _, tmpl := range templates {
		k := len(Placeholders(tmpl))
		values := make([]string, k)
		for i := range values {
			values[i] = "{v}"
		}
		ask, asked := answers(values...)

		got, err := ResolveURI(context.Background(), tmpl, ask)
		if err != nil {
			t.Fatalf("ResolveURI(%q) error = %v", tmpl, err)
		}
		if len(*asked) != k {
			t.Errorf("ResolveURI(%q) asked %d times, want %d", tmpl, len(*asked), k)
		}
		if strings.ContainsAny(got, "{}") {
			t.Errorf("ResolveURI(%q) = %q still has braces", tmpl, got)
		}
	}
}

func TestResolveURI_RoundTrip(t *testing.T) {
	values := []string{
		"plain",
		"a b",
		"ünïcødé",
		"100% sure",
		"a+b=c&d",
		"emoji 🚀",
		"it's (fine) *really* ~ok!",
	}

	for _, v := range values {
		ask, _ := answers(v)
		got, err := ResolveURI(context.Background(), "x/{v}", ask)
		if err != nil {
			t.Fatalf("ResolveURI() error = %v", err)
		}

		decoded, err := url.PathUnescape(strings.TrimPrefix(got, "x/"))
		if err != nil {
			t.Fatalf("PathUnescape(%q) error = %v", got, err)
		}
		if decoded != v {
			t.Errorf("round trip of %q gave %q", v, decoded)
		}
	}
}

func TestResolveURI_PromptError(t *testing.T) {
	errCancel := errors.New("cancelled")
	calls := 0
	ask := func(context.Context, string) (string, error) {
		calls++
		return "", errCancel
	}

	_, err := ResolveURI(context.Background(), "{a}/{b}", ask)
	if !errors.Is(err, errCancel) {
		t.Errorf("ResolveURI() error = %v, want %v", err, errCancel)
	}
	if calls != 1 {
		t.Errorf("asked %d times after failure, want 1", calls)
	}
}

func TestResolveURI_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ask, asked := answers("x")

	_, err := ResolveURI(ctx, "{a}", ask)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ResolveURI() error = %v, want context.Canceled", err)
	}
	if len(*asked) != 0 {
		t.Error("no prompt expected after cancellation")
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("users/{userId}/posts/{postId}/{userId}")
	want := []string{"userId", "postId", "userId"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Placeholders() = %v, want %v", got, want)
	}
	if n := len(Placeholders("static")); n != 0 {
		t.Errorf("Placeholders(static) = %d names", n)
	}
}

func TestEncodeURIComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abcXYZ019", "abcXYZ019"},
		{"-_.!~*'()", "-_.!~*'()"},
		{"a b", "a%20b"},
		{",/?:@&=+$#", "%2C%2F%3F%3A%40%26%3D%2B%24%23"},
		{"é", "%C3%A9"},
		{"€", "%E2%82%AC"},
		{"%", "%25"},
		{"[]", "%5B%5D"},
	}

	for _, tt := range tests {
		if got := EncodeURIComponent(tt.in); got != tt.want {
			t.Errorf("EncodeURIComponent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
