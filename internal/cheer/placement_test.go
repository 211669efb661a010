package cheer

import (
	"strings"
	"testing"
)

func TestPlaceWithinBands(t *testing.T) {
	var messages []Message
	for i := 0; i < 100; i++ {
		msg := Place(messages, "화이팅!", "이서연")

		left, ok := parsePercent(msg.Style.Left)
		if !ok {
			t.Fatalf("unparseable left %q", msg.Style.Left)
		}
		top, ok := parsePercent(msg.Style.Top)
		if !ok {
			t.Fatalf("unparseable top %q", msg.Style.Top)
		}

		inLeftBand := left >= leftBandStart && left <= leftBandStart+leftBandWidth
		inRightBand := left >= rightBandStart && left <= rightBandStart+rightBandWidth
		if !inLeftBand && !inRightBand {
			t.Fatalf("left = %f outside both bands", left)
		}
		if top < topStart || top > topStart+topRange {
			t.Fatalf("top = %f outside [%f, %f]", top, topStart, topStart+topRange)
		}
	}
}

func TestPlaceTerminatesWhenSaturated(t *testing.T) {
	// 两条条带各铺满几条留言，使任何候选点都碰撞。
	saturated := []Message{
		{Style: Style{Left: "1%", Top: "15%"}},
		{Style: Style{Left: "1%", Top: "24%"}},
		{Style: Style{Left: "1%", Top: "33%"}},
		{Style: Style{Left: "1%", Top: "42%"}},
		{Style: Style{Left: "1%", Top: "51%"}},
		{Style: Style{Left: "1%", Top: "60%"}},
		{Style: Style{Left: "1%", Top: "69%"}},
		{Style: Style{Left: "1%", Top: "78%"}},
		{Style: Style{Left: "88%", Top: "15%"}},
		{Style: Style{Left: "88%", Top: "24%"}},
		{Style: Style{Left: "88%", Top: "33%"}},
		{Style: Style{Left: "88%", Top: "42%"}},
		{Style: Style{Left: "88%", Top: "51%"}},
		{Style: Style{Left: "88%", Top: "60%"}},
		{Style: Style{Left: "88%", Top: "69%"}},
		{Style: Style{Left: "88%", Top: "78%"}},
	}

	// 重试耗尽也必须返回一个位置。
	msg := Place(saturated, "응원합니다", "박지후")
	if msg.Style.Left == "" || msg.Style.Top == "" {
		t.Fatalf("placement missing under saturation: %+v", msg.Style)
	}
}

func TestPlacePopulatesFields(t *testing.T) {
	msg := Place(nil, "가즈아", "최민준")

	if msg.ID == "" {
		t.Fatal("empty id")
	}
	if msg.Text != "가즈아" || msg.Author != "최민준" {
		t.Fatalf("message = %+v", msg)
	}
	if msg.Style.AnimationDelay != "0s" {
		t.Fatalf("animation delay = %q", msg.Style.AnimationDelay)
	}
	if !strings.HasSuffix(msg.Style.Left, "%") || !strings.HasSuffix(msg.Style.Top, "%") {
		t.Fatalf("style not percent-formatted: %+v", msg.Style)
	}
}

func TestCollidesIgnoresUnparseablePositions(t *testing.T) {
	existing := []Message{{Style: Style{Left: "oops", Top: "also-bad"}}}

	if collides(existing, 5, 50) {
		t.Fatal("unparseable position treated as collision")
	}
}

func TestParsePercent(t *testing.T) {
	if v, ok := parsePercent("42.5000%"); !ok || v != 42.5 {
		t.Fatalf("parsePercent = %f, %v", v, ok)
	}
	if _, ok := parsePercent("nope"); ok {
		t.Fatal("parsed garbage")
	}
}
