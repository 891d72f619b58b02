package format

import (
	"math/rand/v2"
	"strings"
	"testing"
)

func testRand() *rand.Rand { return rand.New(rand.NewPCG(7, 11)) }

func TestPostPrependsMarker(t *testing.T) {
	t.Parallel()
	got := Post("Hello", testRand())
	found := false
	for _, m := range Markers {
		if got == m+" Hello" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Post(%q) = %q, want a marker prefix", "Hello", got)
	}
}

func TestPostKeepsExistingMarker(t *testing.T) {
	t.Parallel()
	tests := []string{
		"🚀 Launch day",
		"Big news ✨ today",
		strings.Repeat("a", 49) + "⚡",
	}
	for _, in := range tests {
		if got := Post(in, testRand()); got != in {
			t.Fatalf("Post(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestPostMarkerOutsideWindow(t *testing.T) {
	t.Parallel()
	in := strings.Repeat("é", 50) + "🚀"
	got := Post(in, testRand())
	if got == in || !strings.HasSuffix(got, in) {
		t.Fatalf("marker past the window should not count: %q", got)
	}
}

func TestBordersIdentityWithoutBoxes(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "plain", "multi\nline\ntext", "━━ already a border"} {
		if got := Borders(in); got != in {
			t.Fatalf("Borders(%q) = %q", in, got)
		}
		if got := Borders(Borders(in)); got != in {
			t.Fatalf("Borders twice(%q) = %q", in, got)
		}
	}
}

func TestBordersFramesBoxes(t *testing.T) {
	t.Parallel()
	in := "Intro\n┌ item\n└ end"
	want := "Intro\n" + border + "\n┌ item\n└\n" + border + " end"
	if got := Borders(in); got != want {
		t.Fatalf("Borders = %q, want %q", got, want)
	}
}

func TestPostDeterministicForSeed(t *testing.T) {
	t.Parallel()
	a := Post("same", rand.New(rand.NewPCG(3, 4)))
	b := Post("same", rand.New(rand.NewPCG(3, 4)))
	if a != b {
		t.Fatalf("same seed gave %q and %q", a, b)
	}
}
