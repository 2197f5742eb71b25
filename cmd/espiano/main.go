package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/awesome-gocui/gocui"
	"github.com/gethiox/espiano/internal/pkg/display"
	"github.com/gethiox/espiano/internal/pkg/input"
	"github.com/gethiox/espiano/internal/pkg/link"
	"github.com/gethiox/espiano/internal/pkg/logger"
	"github.com/gethiox/espiano/internal/pkg/melody"
	"github.com/gethiox/espiano/internal/pkg/note"
	"github.com/gethiox/espiano/internal/pkg/piano"
	"github.com/gethiox/espiano/internal/pkg/rgb"
	"github.com/gethiox/espiano/internal/pkg/sound"
	"github.com/logrusorgru/aurora"
)

var log = logger.GetLogger()

const (
	modeFree     = "free"
	modeTraining = "training"
	modeGame     = "game"
)

func FanOut[T any](input <-chan T) (<-chan T, <-chan T) {
	size := cap(input)
	if size == 0 {
		// at least size of 1 to prevent from output channels blocking by each other
		// also to keep running just one goroutine
		size = 1
	}
	var output1 = make(chan T, size)
	var output2 = make(chan T, size)

	go func() {
		for v := range input {
			output1 <- v
			output2 <- v
		}
		close(output1)
		close(output2)
	}()
	return output1, output2
}

func handleSigs(wg *sync.WaitGroup, sigs <-chan os.Signal, cancel func(), g *gocui.Gui) {
	defer wg.Done()
	var counter int
	for sig := range sigs {
		if counter > 0 {
			fmt.Println("Dirty exit")
			os.Exit(1)
		}
		log.Info(fmt.Sprintf("signal received: %v", sig), logger.Debug)
		cancel()
		if g != nil {
			g.Update(func(*gocui.Gui) error { return gocui.ErrQuit })
		}
		counter++
	}
}

func runUI(cfg ESPianoConfig, board *Board, game *melody.Game, cancel func()) *gocui.Gui {
	g, err := GetCli(board)
	if err != nil {
		panic(err)
	}

	if game != nil {
		var selected int
		err = g.SetKeybinding("", gocui.KeyTab, gocui.ModNone, func(g *gocui.Gui, v *gocui.View) error {
			ids := game.Library().IDs()
			if len(ids) == 0 {
				return nil
			}
			selected = (selected + 1) % len(ids)
			err := game.Start(ids[selected])
			if err != nil {
				log.Info(fmt.Sprintf("cannot start game: %v", err), logger.Warning)
			}
			return nil
		})
		if err != nil {
			panic(err)
		}
	}

	go func() {
		err := g.MainLoop()
		if err != nil && err != gocui.ErrQuit {
			panic(err)
		}
		g.Close()
		cancel() // leaving the ui means leaving the program
	}()

	go func() {
		for {
			g.Update(board.Layout)
			time.Sleep(cfg.ESPiano.LogViewRate)
		}
	}()

	time.Sleep(time.Millisecond * 500) // waiting for view init
	return g
}

func loadKeymap(path string, notes note.Set) input.Keymap {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Info(fmt.Sprintf("keymap not loaded (%v), binding home row keys", err), logger.Warning)
		return input.DefaultKeymap(notes)
	}
	keymap, err := input.ParseKeymap(data, notes)
	if err != nil {
		log.Info(fmt.Sprintf("keymap \"%s\" invalid (%v), binding home row keys", path, err), logger.Warning)
		return input.DefaultKeymap(notes)
	}
	return keymap
}

// loadLibrary merges melody file with imported MIDI files, built-in melodies are used when nothing is available.
func loadLibrary(cfg Melody, notes note.Set) melody.Library {
	library, err := melody.Load(cfg.File, notes)
	if err != nil {
		log.Info(fmt.Sprintf("melody file \"%s\" not loaded: %v", cfg.File, err), logger.Warning)
	}
	if cfg.MidiDir != "" {
		library = append(library, melody.LoadSMFDir(cfg.MidiDir, notes)...)
	}
	if len(library) == 0 {
		library = melody.Defaults().Within(notes)
		log.Info(fmt.Sprintf("no melodies available, using %d built-in ones fitting configured notes", len(library)), logger.Info)
	}
	return library
}

func watchMelodies(ctx context.Context, wg *sync.WaitGroup, cfg Melody, notes note.Set, game *melody.Game) {
	defer wg.Done()
	for path := range melody.DetectChanges(ctx, cfg.File) {
		library := loadLibrary(cfg, notes)
		game.SetLibrary(library)
		log.Info(fmt.Sprintf("melodies reloaded from \"%s\", %d available", path, len(library)), logger.Info)
	}
}

func pickMelody(library melody.Library, id string) melody.Melody {
	if id != "" {
		m, ok := library.Find(id)
		if ok {
			return m
		}
		log.Info(fmt.Sprintf("melody \"%s\" not found", id), logger.Warning)
	}
	if len(library) == 0 {
		return melody.Melody{}
	}
	return library[0]
}

func printLogs(done chan<- struct{}) {
	defer close(done)
	if *silent {
		for range logger.Messages {
		}
		return
	}

	fmt.Printf("for clickable keys use -ui flag\n")
	au := aurora.NewAurora(!*nocolor)
	for data := range logger.Messages {
		msg, err := unpack(data)
		if err != nil {
			fmt.Printf("%s\n", string(data))
			continue
		}
		m := prepareString(msg, au, -1, *logLevel)
		if m != "" {
			fmt.Printf("%s\n", m)
		}
	}
}

var (
	grab     = flag.Bool("grab", false, "grab keyboards for exclusive usage")
	ui       = flag.Bool("ui", false, "engage terminal ui with clickable keys")
	force256 = flag.Bool("256", false, "force 256 color mode")
	nocolor  = flag.Bool("nocolor", false, "disable color")
	logLevel = flag.Int("loglevel", 2,
		"logging level, each level enables additional information class (0-3, default: 2)\n"+
			"\navailable options:\n"+
			"0: general info (eg. device connected, melody messages)\n"+
			"1: connection attempts\n"+
			"2: key events of every channel\n"+
			"3: events of notes not bound to any key",
	)
	mode     = flag.String("mode", modeFree, "free, training or game")
	melodyID = flag.String("melody", "", "melody id for game and melody training, first available when empty")
	endpoint = flag.String("endpoint", "", "device endpoint, overrides config value")
	silent   = flag.Bool("silent", false, "no output logging")
)

func main() {
	flag.Parse()
	*logLevel += 2

	if *force256 {
		os.Setenv("TERM", "xterm-256color")
	}

	switch *mode {
	case modeFree, modeTraining, modeGame:
	default:
		fmt.Printf("unsupported mode \"%s\"\n", *mode)
		os.Exit(1)
	}

	err := createConfigDirectoryIfNeeded()
	if err != nil {
		panic(err)
	}

	var cfg = LoadESPianoConfig(configFile)
	if *endpoint != "" {
		cfg.ESPiano.Endpoint = *endpoint
	}
	log.Info(fmt.Sprintf("ESPiano config: %+v", cfg), logger.Debug)
	notes := cfg.ESPiano.Notes

	var sigs = make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())

	// this wait-group has to be propagated everywhere where usual logging appear
	wg := sync.WaitGroup{}

	keymap := loadKeymap(cfg.Keyboard.Keymap, notes)

	// every source delivers into one channel, reconciliation happens on a single goroutine
	var events = make(chan piano.Event, 64)

	overview := NewOverview(*mode)
	board := NewBoard(notes, keymap, events)
	leds := rgb.NewIndicator()

	withUI := *ui && !*silent
	indicators := piano.Indicators{overview}
	if withUI {
		indicators = append(indicators, board)
	}
	if cfg.OpenRGB.Enabled {
		indicators = append(indicators, leds)
	}

	output, err := sound.Open(cfg.Sound, notes)
	if err != nil {
		log.Info(fmt.Sprintf("sound output not available: %v", err), logger.Error)
		output = sound.Silent{}
	}

	reconciler := piano.NewReconciler(notes, output, indicators, *silent)

	var game *melody.Game
	var training *melody.Training
	library := loadLibrary(cfg.Melody, notes)

	switch *mode {
	case modeTraining:
		training = melody.NewTraining(
			notes, cfg.Melody.TrainingPresses, pickMelody(library, *melodyID), indicators, overview.SetMessage,
		)
		reconciler.OnPress(training.Press)
	case modeGame:
		game = melody.NewGame(library, indicators, overview.SetMessage)
		reconciler.OnPress(game.Press)
		overview.SetProgress(func() string {
			s := game.Stats()
			if s.Melody == "" {
				return "no melody selected"
			}
			return fmt.Sprintf("melody: %s (%d/%d), score: %d, mistakes: %d", s.Melody, s.Position, s.Length, s.Score, s.Mistakes)
		})
		wg.Add(1)
		go watchMelodies(ctx, &wg, cfg.Melody, notes, game)
	}

	var g *gocui.Gui
	if withUI {
		g = runUI(cfg, board, game, cancel)
	}

	wg.Add(1)
	go handleSigs(&wg, sigs, cancel, g)

	var processed = make(chan struct{})
	go func() {
		defer close(processed)
		reconciler.ProcessEvents(events)
	}()

	switch {
	case training != nil:
		training.Start()
	case game != nil:
		err := game.Start(pickMelody(library, *melodyID).ID)
		if err != nil {
			log.Info(fmt.Sprintf("cannot start game: %v", err), logger.Warning)
		}
	}

	manager := link.NewManager(link.Config{
		Endpoint: cfg.ESPiano.Endpoint,
		Backoff:  cfg.ESPiano.ReconnectDelay,
		Notes:    notes,
		NoLogs:   *silent,
	}, events)
	manager.OnStatus(overview.SetStatus)

	var keyboards sync.WaitGroup
	if cfg.Keyboard.Enabled {
		keyboards.Add(1)
		go input.MonitorKeyboards(ctx, &keyboards, input.MonitorConfig{
			Pattern:       cfg.Keyboard.Devices,
			DiscoveryRate: cfg.Keyboard.DiscoveryRate,
			Grab:          *grab,
			NoLogs:        *silent,
		}, keymap, events)
	}

	if cfg.OpenRGB.Enabled {
		wg.Add(1)
		go leds.Run(ctx, &wg, cfg.OpenRGB, notes, keymap)
	}

	score := func() int {
		if game == nil {
			return 0
		}
		return game.Stats().Score
	}

	wg.Add(1)
	dd := GenerateDisplayData(ctx, &wg, cfg.Screen, overview, reconciler, score)
	dd1, dd2 := FanOut(dd)

	if cfg.Screen.Enabled {
		wg.Add(1)
		go display.HandleDisplay(&wg, cfg.Screen, dd1)
	} else {
		go func() {
			for range dd1 {
			}
		}()
	}

	var printed = make(chan struct{})
	if withUI {
		go logView(g, !*nocolor, *logLevel, cfg.ESPiano.LogBufferSize)
		go statusView(g, !*nocolor, overview, reconciler, cfg.ESPiano.LogViewRate)
		go lcdView(g, dd2)
		close(printed)
	} else {
		go func() {
			for range dd2 {
			}
		}()
		go printLogs(printed)
	}

	manager.Run(ctx)

	log.Info("waiting...", logger.Debug)
	keyboards.Wait()
	board.Detach()
	close(events)
	<-processed

	err = output.Close()
	if err != nil {
		log.Info(fmt.Sprintf("closing sound output failed: %v", err), logger.Warning)
	}

	signal.Stop(sigs)
	close(sigs)

	// closing logger can be safely invoked only when all internally running goroutines (that may emit logs) are done
	wg.Wait()
	close(logger.Messages)
	<-printed

	if game != nil {
		fmt.Printf("thanks for playing, score: %d\n", score())
	}
}
