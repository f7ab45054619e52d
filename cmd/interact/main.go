// Command interact is a terminal playground for the interaction core.
// It draws a handful of form objects and a drop zone, translates real
// terminal mouse input into the core's normalized event stream, and
// shows live previews, lock state and metrics while you drag things
// around. It doubles as a manual soak harness for the anomaly
// detectors.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/pflag"

	"github.com/formgrid/interact/internal/config"
	"github.com/formgrid/interact/internal/engine"
	"github.com/formgrid/interact/internal/event"
	"github.com/formgrid/interact/internal/geometry"
	"github.com/formgrid/interact/internal/input"
	"github.com/formgrid/interact/internal/machine/dragdrop"
	"github.com/formgrid/interact/internal/object"
	"github.com/formgrid/interact/internal/render"
	"github.com/formgrid/interact/internal/script"
	"github.com/formgrid/interact/internal/session"
)

// scale maps terminal cells to logical pixels so the 8px gesture
// threshold is crossable with a short mouse travel.
const scale = 4.0

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var rulesPath string
	var logLevel string
	var logPath string

	flagSet := pflag.NewFlagSet("interact", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to a TOML or YAML configuration file")
	flagSet.StringVar(&rulesPath, "rules", "", "path to a Lua rules file with can_drag/can_drop predicates")
	flagSet.StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	flagSet.StringVar(&logPath, "log-file", "interact.log", "write logs to this file (the terminal is busy)")
	flagSet.BoolP("help", "h", false, "show help")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		flagSet.PrintDefaults()
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log := engine.NewLogger(engine.LoggerConfig{
		Level:  engine.ParseLogLevel(cfg.Logging.Level),
		Output: logFile,
		Prefix: "interact",
	})

	pg := &playground{previews: make(map[object.ID]geometry.Rect)}

	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithSink(render.SinkFunc(pg.applyUpdate)),
	}

	var rules *script.Engine
	if rulesPath != "" {
		src, err := os.ReadFile(rulesPath)
		if err != nil {
			return err
		}
		rules = script.NewEngine()
		defer rules.Close()
		if err := rules.LoadRules(string(src)); err != nil {
			return fmt.Errorf("loading rules: %w", err)
		}
		opts = append(opts,
			engine.WithDropFilter(rules.DropFilter()),
			engine.WithDragFilter(rules.CanDrag),
		)
	}

	eng := engine.New(cfg, opts...)
	pg.eng = eng
	pg.populate()

	if configPath != "" {
		watcher, err := config.Watch(configPath, eng.Bus(), eng.ApplyConfig)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	eng.Bus().Subscribe(event.TopicDragDropped, func(c event.Change) {
		pg.pendingDrop = c.ObjectID
	})
	eng.Bus().Subscribe("**", func(c event.Change) {
		pg.lastChange = c.Topic.String()
	})

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse()

	return pg.loop(screen)
}

// playground owns the terminal UI state around one engine.
type playground struct {
	eng *engine.Engine

	previews    map[object.ID]geometry.Rect
	buttons     tcell.ButtonMask
	pendingDrop object.ID
	lastChange  string
}

// populate registers the demo layout: three widgets, a palette tray
// holding a draggable chip, and a trash zone that accepts anything.
func (pg *playground) populate() {
	reg := pg.eng.Registry()
	reg.Add(&object.TrackedObject{
		ID:           "name-field",
		Bounds:       geometry.Rect{X: 40, Y: 16, Width: 80, Height: 12},
		Capabilities: object.Selectable | object.Movable | object.Resizable,
	})
	reg.Add(&object.TrackedObject{
		ID:           "email-field",
		Bounds:       geometry.Rect{X: 40, Y: 36, Width: 80, Height: 12},
		Capabilities: object.Selectable | object.Movable | object.Resizable,
	})
	reg.Add(&object.TrackedObject{
		ID:           "submit",
		Bounds:       geometry.Rect{X: 40, Y: 56, Width: 40, Height: 12},
		Capabilities: object.Selectable | object.Movable,
		Z:            1,
	})
	reg.Add(&object.TrackedObject{
		ID:           "chip",
		Bounds:       geometry.Rect{X: 160, Y: 20, Width: 24, Height: 8},
		Capabilities: object.Selectable | object.Movable,
		Z:            2,
	})

	pg.eng.Zones().Register(dragdrop.Zone{
		ID:     "palette",
		Bounds: geometry.Rect{X: 152, Y: 12, Width: 48, Height: 48},
	})
	pg.eng.Zones().Register(dragdrop.Zone{
		ID:     "trash",
		Bounds: geometry.Rect{X: 152, Y: 72, Width: 48, Height: 28},
		Z:      1,
	})
}

func (pg *playground) applyUpdate(u render.Update) {
	switch u.Kind {
	case render.Preview:
		if u.Bounds != nil {
			pg.previews[u.ObjectID] = *u.Bounds
		}
	default:
		delete(pg.previews, u.ObjectID)
	}
}

func (pg *playground) loop(screen tcell.Screen) error {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if quit := pg.handle(ev); quit {
				return nil
			}
		case now := <-ticker.C:
			pg.eng.Tick(now)
			pg.draw(screen)
		}
	}
}

func (pg *playground) handle(ev tcell.Event) bool {
	switch tev := ev.(type) {
	case *tcell.EventKey:
		return pg.handleKey(tev)
	case *tcell.EventMouse:
		pg.handleMouse(tev)
	}
	return false
}

func (pg *playground) handleKey(ev *tcell.EventKey) bool {
	now := time.Now()
	switch ev.Key() {
	case tcell.KeyEscape:
		pg.eng.HandleEvent(input.Event{Type: input.EventKey, Key: input.KeyEscape, Timestamp: now})
		return false
	case tcell.KeyCtrlC:
		return true
	}

	switch ev.Rune() {
	case 'q':
		return true
	case 'm':
		next := session.ModeDesign
		if pg.eng.Session().Mode() == session.ModeDesign {
			next = session.ModePreview
		}
		pg.eng.Blur(now)
		pg.eng.Session().SetMode(next)
	case 'y':
		if pg.pendingDrop != "" {
			pg.eng.ResolveDrop(pg.pendingDrop, true, "", now)
			pg.pendingDrop = ""
		}
	case 'n':
		if pg.pendingDrop != "" {
			pg.eng.ResolveDrop(pg.pendingDrop, false, "operator_rejected", now)
			pg.pendingDrop = ""
		}
	}
	return false
}

func (pg *playground) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	pos := geometry.Point{X: float64(x) * scale, Y: float64(y) * scale}
	mods := convertModifiers(ev.Modifiers())
	now := time.Now()

	prev := pg.buttons
	cur := ev.Buttons() & tcell.ButtonMask(0xff)
	pg.buttons = cur

	switch {
	case prev&tcell.Button1 == 0 && cur&tcell.Button1 != 0:
		pg.eng.HandleEvent(input.Event{Type: input.EventDown, Position: pos, Modifiers: mods, Timestamp: now})
	case prev&tcell.Button1 != 0 && cur&tcell.Button1 == 0:
		pg.eng.HandleEvent(input.Event{Type: input.EventUp, Position: pos, Modifiers: mods, Timestamp: now})
	case cur&tcell.Button1 != 0:
		pg.eng.HandleEvent(input.Event{Type: input.EventMove, Position: pos, Modifiers: mods, Timestamp: now})
	}
}

func convertModifiers(m tcell.ModMask) input.Modifier {
	var out input.Modifier
	if m&tcell.ModShift != 0 {
		out |= input.ModShift
	}
	if m&tcell.ModCtrl != 0 {
		out |= input.ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		out |= input.ModAlt
	}
	if m&tcell.ModMeta != 0 {
		out |= input.ModMeta
	}
	return out
}

var (
	styleObject   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleSelected = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	stylePreview  = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	styleZone     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

func (pg *playground) draw(screen tcell.Screen) {
	screen.Clear()

	for _, z := range []object.ID{"palette", "trash"} {
		if zone := pg.eng.Zones().Get(z); zone != nil {
			drawBox(screen, zone.Bounds, styleZone, string(z))
		}
	}

	for _, obj := range pg.eng.Registry().List() {
		style := styleObject
		if pg.eng.Session().IsSelected(obj.ID) {
			style = styleSelected
		}
		bounds := obj.Bounds
		if live, ok := pg.previews[obj.ID]; ok {
			drawBox(screen, live, stylePreview, string(obj.ID))
			continue
		}
		drawBox(screen, bounds, style, string(obj.ID))
	}

	pg.drawStatus(screen)
	screen.Show()
}

func (pg *playground) drawStatus(screen tcell.Screen) {
	_, h := screen.Size()
	snap := pg.eng.Metrics().Snapshot()
	status := fmt.Sprintf("mode=%s sel=%d locks(granted=%d denied=%d timeout=%d) anomalies=%d last=%s",
		pg.eng.Session().Mode(), len(pg.eng.Session().Selected()),
		snap.LocksGranted, snap.LocksDenied, snap.LocksTimedOut,
		snap.AnomaliesFlagged, pg.lastChange)
	if pg.pendingDrop != "" {
		status = fmt.Sprintf("drop of %q pending: y=accept n=reject | %s", pg.pendingDrop, status)
	}
	drawText(screen, 0, h-1, styleStatus, status)
	drawText(screen, 0, h-2, styleStatus, "drag with the mouse; shift=aspect/additive alt=center esc=cancel m=mode q=quit")
}

func drawBox(screen tcell.Screen, r geometry.Rect, style tcell.Style, label string) {
	left := int(r.X / scale)
	top := int(r.Y / scale)
	right := int((r.X + r.Width) / scale)
	bottom := int((r.Y + r.Height) / scale)
	if right <= left {
		right = left + 1
	}
	if bottom <= top {
		bottom = top + 1
	}

	for x := left; x <= right; x++ {
		screen.SetContent(x, top, tcell.RuneHLine, nil, style)
		screen.SetContent(x, bottom, tcell.RuneHLine, nil, style)
	}
	for y := top; y <= bottom; y++ {
		screen.SetContent(left, y, tcell.RuneVLine, nil, style)
		screen.SetContent(right, y, tcell.RuneVLine, nil, style)
	}
	screen.SetContent(left, top, tcell.RuneULCorner, nil, style)
	screen.SetContent(right, top, tcell.RuneURCorner, nil, style)
	screen.SetContent(left, bottom, tcell.RuneLLCorner, nil, style)
	screen.SetContent(right, bottom, tcell.RuneLRCorner, nil, style)

	drawText(screen, left+1, top, style, label)
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, s string) {
	for i, r := range s {
		screen.SetContent(x+i, y, r, nil, style)
	}
}
