// Command wfc-demo generates a bounded lattice with the engine and renders
// the z=0 slice live in the terminal as it collapses: the built-in
// three-module catalog (empty/floor/wall) demonstrates constraint
// propagation keeping floor and wall apart through an empty buffer, with
// the bottom boundary forced walkable before generation starts. Terminal
// lifecycle and panic recovery follow the teacher's own main().
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"runtime/debug"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/lixenwraith/wfc3d/catalog"
	"github.com/lixenwraith/wfc3d/collapse"
	"github.com/lixenwraith/wfc3d/history"
	"github.com/lixenwraith/wfc3d/lattice"
	"github.com/lixenwraith/wfc3d/moduleset"
	"github.com/lixenwraith/wfc3d/parameter"
	"github.com/lixenwraith/wfc3d/propagation"
	"github.com/lixenwraith/wfc3d/registry"
	"github.com/lixenwraith/wfc3d/slot"
	"github.com/lixenwraith/wfc3d/worldmap"
)

var (
	widthFlag   = flag.Int("width", 60, "lattice width (x)")
	heightFlag  = flag.Int("height", 30, "lattice height (y)")
	depthFlag   = flag.Int("depth", 1, "lattice depth (z); the terminal renders only the z=0 slice")
	seedFlag    = flag.Uint64("seed", 0, "PRNG seed (0 = seed from runtime entropy)")
	catalogFlag = flag.String("catalog", "", "path to a TOML module catalog (empty = built-in demo catalog)")
)

func init() {
	registry.RegisterCatalogLoader("toml", catalog.LoadTOMLFile)
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\nwfc-demo crashed: %v\n%s\n", r, debug.Stack())
			os.Exit(1)
		}
	}()

	flag.Parse()

	cat, err := loadCatalog(*catalogFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "terminal: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "terminal: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()
	screen.SetStyle(tcell.StyleDefault)
	screen.Clear()

	box := lattice.Box{Size: lattice.Position{X: int32(*widthFlag), Y: int32(*heightFlag), Z: int32(*depthFlag)}}
	hist := history.New(parameter.HistoryCapacity)
	queue := propagation.New()
	m := worldmap.NewBoundedMap(cat, hist, queue, box)

	c := collapse.New(m, collapse.Config{
		InitialBacktrackAmount: parameter.InitialBacktrackAmount,
		ProgressCadence:        parameter.ProgressCadence,
		Seed:                   *seedFlag,
	})

	for y := int32(0); y < box.Size.Y; y++ {
		for x := int32(0); x < box.Size.X; x++ {
			pos := lattice.Position{X: x, Y: y, Z: 0}
			if err := c.EnforceWalkway(pos, lattice.MinusZ); err != nil {
				fmt.Fprintf(os.Stderr, "boundary setup: %v\n", err)
				os.Exit(1)
			}
		}
	}

	obs := &demoObserver{screen: screen, m: m, box: box, cat: cat}
	c.SetObserver(obs)

	if err := c.CollapseBox(box, true); err != nil {
		obs.draw()
		screen.Show()
		log.Printf("generation ended: %v", err)
	}

	obs.draw()
	screen.Show()
	waitForQuit(screen)
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return demoCatalog()
	}
	loader, ok := registry.GetCatalogLoader("toml")
	if !ok {
		return nil, fmt.Errorf("toml catalog loader is not registered")
	}
	return loader(path)
}

// demoCatalog builds the built-in three-module catalog: empty tolerates
// every neighbor, floor and empty tolerate each other, wall and empty
// tolerate each other, but floor and wall never touch directly — the
// propagation has to keep them separated by at least one empty cell.
func demoCatalog() (*catalog.Catalog, error) {
	const (
		modEmpty = 0
		modFloor = 1
		modWall  = 2
	)
	names := []string{"empty", "floor", "wall"}
	probs := []float64{0.6, 0.25, 0.15}
	walkable := []bool{true, true, false}
	allowed := [3][3]bool{
		{true, true, true},
		{true, true, false},
		{true, false, true},
	}

	modules := make([]catalog.Module, len(names))
	for i := range modules {
		mod := catalog.Module{Name: names[i], Probability: probs[i]}
		for _, d := range lattice.Directions {
			set := moduleset.New(len(names))
			for j := range names {
				if allowed[i][j] {
					set.Add(j)
				}
			}
			mod.PossibleNeighbors[d] = set
			mod.Walkable[d] = walkable[i]
		}
		modules[i] = mod
	}
	return catalog.New(modules)
}

// demoObserver redraws the z=0 slice on every progress tick: collapsed
// cells render as their module's glyph, uncollapsed cells as a
// green-to-red entropy ramp built from go-colorful's HSV blend.
type demoObserver struct {
	screen tcell.Screen
	m      *worldmap.BoundedMap
	box    lattice.Box
	cat    *catalog.Catalog
}

func (o *demoObserver) OnProgress(remaining, total int) bool {
	o.draw()
	o.screen.Show()
	return true
}

func (o *demoObserver) OnCollapsed(pos lattice.Position, moduleIndex int)           {}
func (o *demoObserver) OnCollapseUndone(pos lattice.Position)                       {}
func (o *demoObserver) OnHitRangeLimit(pos lattice.Position, removed moduleset.Set) {}

func (o *demoObserver) draw() {
	for y := int32(0); y < o.box.Size.Y; y++ {
		for x := int32(0); x < o.box.Size.X; x++ {
			sl := o.m.GetSlot(lattice.Position{X: x, Y: y, Z: 0})
			ch, style := o.cellGlyph(sl)
			o.screen.SetContent(int(x), int(y), ch, nil, style)
		}
	}
}

func (o *demoObserver) cellGlyph(sl *slot.Slot) (rune, tcell.Style) {
	if idx, ok := sl.Module(); ok {
		switch idx {
		case 0:
			return ' ', tcell.StyleDefault
		case 1:
			return '.', tcell.StyleDefault.Foreground(tcell.ColorSilver)
		default:
			return '#', tcell.StyleDefault.Foreground(tcell.ColorWhite)
		}
	}

	maxEntropy := math.Log(float64(o.cat.N()))
	t := 0.0
	if maxEntropy > 0 {
		t = sl.Entropy() / maxEntropy
		if t > 1 {
			t = 1
		}
	}
	ramp := colorful.Hsv(120*(1-t), 0.8, 0.9) // 120deg green (low entropy) -> 0deg red (high entropy)
	r, g, b := ramp.Clamped().RGB255()
	return '?', tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
}

func waitForQuit(screen tcell.Screen) {
	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
				(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				return
			}
		case *tcell.EventResize:
			screen.Sync()
		}
	}
}
