package tokenizer

import (
	"reflect"
	"testing"
)

func TestQGrams(t *testing.T) {
	tests := []struct {
		name string
		text string
		q    int
		want []string
	}{
		{
			name: "bananarana q3",
			text: "bananarana",
			q:    3,
			want: []string{"$$b", "$ba", "ban", "ana", "nan", "ana", "nar", "ara", "ran", "ana", "na$", "a$$"},
		},
		{
			name: "single rune q3",
			text: "b",
			q:    3,
			want: []string{"$$b", "$b$", "b$$"},
		},
		{
			name: "text shorter than q",
			text: "ba",
			q:    4,
			want: []string{"$$$b", "$$ba", "$ba$", "ba$$", "a$$$"},
		},
		{
			name: "repeated structure keeps duplicates",
			text: "banana",
			q:    2,
			want: []string{"$b", "ba", "an", "na", "an", "na", "a$"},
		},
		{
			name: "q1 no padding",
			text: "ab",
			q:    1,
			want: []string{"a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QGrams(tt.text, tt.q)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("QGrams(%q, %d) = %v, want %v", tt.text, tt.q, got, tt.want)
			}
		})
	}
}

func TestQGramsLength(t *testing.T) {
	// len(qgrams(text, q)) == len(text) + q - 1 for non-empty text.
	texts := []string{"a", "ab", "ballarena", "münchen", "balena park"}
	for _, text := range texts {
		for q := 1; q <= 5; q++ {
			got := len(QGrams(text, q))
			want := len([]rune(text)) + q - 1
			if got != want {
				t.Errorf("len(QGrams(%q, %d)) = %d, want %d", text, q, got, want)
			}
		}
	}
}

func TestQGramsInvalidQ(t *testing.T) {
	if got := QGrams("abc", 0); got != nil {
		t.Errorf("QGrams with q=0 = %v, want nil", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ballarena", "ballarena"},
		{"Balena Park", "balenapark"},
		{"St. Mary's Church", "stmaryschurch"},
		{"Café König", "cafékönig"},
		{"foo_bar", "foo_bar"},
		{"multi\nline name", "multilinename"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
