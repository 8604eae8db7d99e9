package extract

import (
	"reflect"
	"testing"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"¥1,234.50 RMB", 1234.50, true},
		{"12", 12, true},
		{"￥ 0.99", 0.99, true},
		{"-5.00", 5, true},
		{"N/A", 0, false},
		{"", 0, false},
		{".", 0, false},
		{"1.2.3", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParsePrice(tt.raw)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParsePrice(%q) = (%v, %v), want (%v, %v)", tt.raw, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNormalizeAssetURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"https://x.alicdn.com/img_60x60.jpg", "https://x.alicdn.com/img.jpg", true},
		{"https://x.alicdn.com/img.jpg", "https://x.alicdn.com/img.jpg", true},
		{"https://cbu01.alicdn.com/img/ibank/O1CN01.jpg_60x60.jpg", "https://cbu01.alicdn.com/img/ibank/O1CN01.jpg", true},
		{"https://cbu01.alicdn.com/O1CN01.jpg_.webp", "https://cbu01.alicdn.com/O1CN01.jpg", true},
		{"https://cbu01.alicdn.com/O1CN01.jpg_460x460q90.jpg_.webp", "https://cbu01.alicdn.com/O1CN01.jpg", true},
		{"https://x.alicdn.com/a_10x10_60x60.png", "https://x.alicdn.com/a.png", true},
		{"//img.alicdn.com/tfs/a.png", "https://img.alicdn.com/tfs/a.png", true},
		{"https://x.alicdn.com/my_photo.jpg", "https://x.alicdn.com/my_photo.jpg", true},
		{"https://cloud.video.taobao.com/play/u/1/p/1/e/6/t/1/12345.mp4", "https://cloud.video.taobao.com/play/u/1/p/1/e/6/t/1/12345.mp4", true},
		{"https://x.alicdn.com/img_60x60.jpg?x=1", "https://x.alicdn.com/img.jpg?x=1", true},
		{"https://x.alicdn.com/a%2Fb_60x60.jpg", "https://x.alicdn.com/a%2Fb.jpg", true},
		{"https://x.alicdn.com/a%20b_60x60.jpg", "https://x.alicdn.com/a%20b.jpg", true},
		{"data:image/gif;base64,R0lGODlhAQABAAAAACw=", "", false},
		{"javascript:void(0)", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeAssetURL(tt.raw)
			if ok != tt.ok || got != tt.want {
				t.Errorf("NormalizeAssetURL(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNormalizeAssetURL_Idempotent(t *testing.T) {
	inputs := []string{
		"https://x.alicdn.com/img_60x60.jpg",
		"https://cbu01.alicdn.com/O1CN01.jpg_460x460q90.jpg_.webp",
		"https://x.alicdn.com/a_10x10_60x60.png",
		"https://x.alicdn.com/a_1x1b_2x2.jpg",
		"https://x.alicdn.com/a.jpg_b_60x60.jpg",
		"//img.alicdn.com/tfs/a b.png",
		"/relative/path_80x80.gif",
		"https://x.alicdn.com/dir.jpg_x/file.png",
		"https://x.alicdn.com/a%2Fb_60x60.jpg",
	}

	for _, in := range inputs {
		once, ok := NormalizeAssetURL(in)
		if !ok {
			t.Fatalf("NormalizeAssetURL(%q) rejected", in)
		}
		twice, ok := NormalizeAssetURL(once)
		if !ok || twice != once {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestURLNormalizer_ResolvesRelative(t *testing.T) {
	n := URLNormalizer{Base: "https://detail.1688.com/offer/1.html"}

	got, ok := n.Normalize("/img/a_60x60.jpg")
	if !ok || got != "https://detail.1688.com/img/a.jpg" {
		t.Errorf("Expected resolved canonical URL, got (%q, %v)", got, ok)
	}

	got, ok = NormalizeAssetURL("/img/a.jpg")
	if !ok || got != "/img/a.jpg" {
		t.Errorf("Expected relative URL kept without base, got (%q, %v)", got, ok)
	}
}

func TestURLSet(t *testing.T) {
	s := NewURLSet()
	if got := s.Items(); got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil items, got %#v", got)
	}

	for _, u := range []string{"a", "b", "a", "c", "b"} {
		s.Add(u)
	}
	if s.Len() != 3 {
		t.Errorf("Expected 3 entries, got %d", s.Len())
	}
	if !reflect.DeepEqual(s.Items(), []string{"a", "b", "c"}) {
		t.Errorf("Expected insertion order, got %v", s.Items())
	}
}

func TestURLNormalizer_Dedupe(t *testing.T) {
	got := URLNormalizer{}.Dedupe([]string{
		"https://x.alicdn.com/a.jpg",
		"https://x.alicdn.com/a.jpg_60x60.jpg",
		"data:image/png;base64,AAAA",
		"//x.alicdn.com/b.jpg",
	})
	want := []string{"https://x.alicdn.com/a.jpg", "https://x.alicdn.com/b.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
