package mandala

import (
	"math/rand"
	"testing"
)

// checkMirror 校验镜像不变式：中央块外围格与外围块中心格内容一致。
func checkMirror(t *testing.T, g Grid) {
	t.Helper()
	for j := 0; j < 9; j++ {
		if j == CenterCell {
			continue
		}
		if g[CenterBlock][j] != g[j][CenterCell] {
			t.Fatalf("mirror broken at block %d: central %+v, outer %+v",
				j, g[CenterBlock][j], g[j][CenterCell])
		}
	}
}

func TestSeededGrid(t *testing.T) {
	g := SeededGrid("클라우드 전문가")

	center := g[CenterBlock][CenterCell]
	if center.Text != "클라우드 전문가" || !center.IsAccepted {
		t.Fatalf("absolute center = %+v", center)
	}
	for b := 0; b < 9; b++ {
		for c := 0; c < 9; c++ {
			if b == CenterBlock && c == CenterCell {
				continue
			}
			if g[b][c] != (GoalItem{}) {
				t.Fatalf("cell (%d,%d) not empty: %+v", b, c, g[b][c])
			}
		}
	}
}

func TestUpdateCellMirrorsOutward(t *testing.T) {
	g := NewGrid()
	item := GoalItem{Text: "건강", IsAccepted: true}

	g = UpdateCell(g, CenterBlock, 1, item)

	if g[CenterBlock][1] != item {
		t.Fatalf("central cell = %+v", g[CenterBlock][1])
	}
	if g[1][CenterCell] != item {
		t.Fatalf("outer center = %+v", g[1][CenterCell])
	}
	checkMirror(t, g)
}

func TestUpdateCellMirrorsInward(t *testing.T) {
	g := NewGrid()
	item := GoalItem{Text: "독서", IsDraft: true}

	g = UpdateCell(g, 7, CenterCell, item)

	if g[7][CenterCell] != item {
		t.Fatalf("outer center = %+v", g[7][CenterCell])
	}
	if g[CenterBlock][7] != item {
		t.Fatalf("central cell = %+v", g[CenterBlock][7])
	}
	checkMirror(t, g)
}

func TestUpdateAbsoluteCenterHasNoMirror(t *testing.T) {
	g := NewGrid()

	g = UpdateCell(g, CenterBlock, CenterCell, GoalItem{Text: "주목표"})

	for b := 0; b < 9; b++ {
		for c := 0; c < 9; c++ {
			if b == CenterBlock && c == CenterCell {
				continue
			}
			if g[b][c] != (GoalItem{}) {
				t.Fatalf("cell (%d,%d) unexpectedly written: %+v", b, c, g[b][c])
			}
		}
	}
}

func TestUpdateOrdinaryCellDoesNotPropagate(t *testing.T) {
	g := NewGrid()

	g = UpdateCell(g, 2, 7, GoalItem{Text: "매일 운동"})

	count := 0
	for b := 0; b < 9; b++ {
		for c := 0; c < 9; c++ {
			if g[b][c] != (GoalItem{}) {
				count++
			}
		}
	}
	if count != 1 {
		t.Fatalf("ordinary cell write touched %d cells", count)
	}
}

func TestUpdateCellIdempotent(t *testing.T) {
	g := NewGrid()
	item := GoalItem{Text: "자격증", IsAccepted: true}

	once := UpdateCell(g, CenterBlock, 3, item)
	twice := UpdateCell(once, CenterBlock, 3, item)

	if once != twice {
		t.Fatal("repeated identical write changed the grid")
	}
}

func TestUpdateCellDoesNotMutateInput(t *testing.T) {
	g := SeededGrid("주목표")
	before := g

	_ = UpdateCell(g, CenterBlock, 0, GoalItem{Text: "변경"})

	if g != before {
		t.Fatal("input grid mutated")
	}
}

func TestMirrorInvariantUnderRandomSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	g := SeededGrid("주목표")

	for i := 0; i < 500; i++ {
		item := GoalItem{
			Text:       "항목",
			IsDraft:    rng.Intn(2) == 0,
			IsAccepted: rng.Intn(2) == 0,
		}
		g = UpdateCell(g, rng.Intn(9), rng.Intn(9), item)
		checkMirror(t, g)
	}
}
