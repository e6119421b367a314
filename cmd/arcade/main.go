// Command arcade plays one exercise session in the terminal. The camera feed
// is drawn as shaded cells, mouse clicks act as taps and cues play through
// the default audio device.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/okian/motionplay/internal/adapters/audio"
	"github.com/okian/motionplay/internal/adapters/render/terminal"
	app "github.com/okian/motionplay/internal/app"
	"github.com/okian/motionplay/internal/config"
	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/internal/engine/render"
	"github.com/okian/motionplay/pkg/logger"
)

const (
	hudInterval     = 200 * time.Millisecond
	defaultDuration = 30
	defaultVolume   = 0.5
	logFilePerm     = 0600
)

func main() {
	var (
		kind       = flag.String("kind", string(model.ExerciseTargets), "Exercise kind: targets, falling, boxing, boxing_targets or jump")
		duration   = flag.Int("duration", defaultDuration, "Challenge length in seconds")
		difficulty = flag.Float64("difficulty", 1, "Challenge difficulty")
		volume     = flag.Float64("volume", defaultVolume, "Cue volume from 0 to 1, 0 mutes")
		logFile    = flag.String("log", "", "Log file (default: logs are discarded)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		_, _ = os.Stderr.WriteString("invalid config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// The screen owns stdout while the session runs.
	var w io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
		if err != nil {
			_, _ = os.Stderr.WriteString("failed to open log file: " + err.Error() + "\n")
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	if err := logger.Init(logger.WithWriter(w), logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	ch := model.Challenge{DurationSeconds: *duration, Kind: model.ExerciseKind(*kind), Difficulty: *difficulty}
	v, err := play(ctx, cfg, ch, *volume)
	if err != nil {
		_, _ = os.Stderr.WriteString("arcade: " + err.Error() + "\n")
		os.Exit(1) //nolint:gocritic // exitAfterDefer
	}
	fmt.Println(summary(v))
}

// play runs the session on a fresh screen and returns its final view.
func play(ctx context.Context, cfg *config.Config, ch model.Challenge, volume float64) (app.View, error) {
	log := logger.Get().Named("arcade")

	screen, err := tcell.NewScreen()
	if err != nil {
		return app.View{}, err
	}
	if err := screen.Init(); err != nil {
		return app.View{}, err
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.HideCursor()

	surface := terminal.New(screen)
	var player audio.Player = audio.Silent{}
	if volume > 0 {
		sp := audio.NewSpeaker(volume)
		if err := sp.Open(); err != nil {
			log.Warn(ctx, "audio disabled", logger.Error(err))
		} else {
			defer sp.Close()
			player = sp
		}
	}

	opts, err := app.FromConfig(cfg, log)
	if err != nil {
		return app.View{}, err
	}
	svc := app.New(append(opts,
		app.WithMaxLiveSessions(1),
		app.WithSurfaces(func() render.Surface { return surface }),
		app.WithPlayer(player),
	)...)
	if err := svc.Start(ctx); err != nil {
		return app.View{}, err
	}
	defer svc.Stop()

	v, err := svc.CreateSession(ctx, ch)
	if err != nil {
		return app.View{}, err
	}
	id := v.ID
	if v, err = svc.InitializeSession(ctx, id); err != nil {
		return v, err
	}
	if v, err = svc.StartSession(ctx, id); err != nil {
		return v, err
	}

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

	hud := time.NewTicker(hudInterval)
	defer hud.Stop()
	var pressed bool
	for {
		select {
		case <-ctx.Done():
			return cancel(svc, id)
		case <-hud.C:
			if v, err = svc.Session(ctx, id); err != nil {
				return v, err
			}
			surface.SetStatus(statusLine(v))
			if v.State != model.StateActive.String() {
				_ = surface.Present()
			}
		case ev, ok := <-events:
			if !ok {
				return cancel(svc, id)
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Rune() == 'q':
					return cancel(svc, id)
				case ev.Rune() == 'r':
					if _, err := svc.StartSession(ctx, id); err != nil {
						log.Debug(ctx, "replay refused", logger.Error(err))
					}
				}
			case *tcell.EventMouse:
				down := ev.Buttons()&tcell.Button1 != 0
				if down && !pressed {
					col, row := ev.Position()
					if _, err := svc.Tap(ctx, id, surface.ToRender(col, row)); err != nil {
						log.Debug(ctx, "tap failed", logger.Error(err))
					}
				}
				pressed = down
			}
		}
	}
}

// cancel ends an active session and returns its final view.
func cancel(svc *app.Service, id string) (app.View, error) {
	ctx := context.Background()
	v, err := svc.Session(ctx, id)
	if err != nil {
		return v, err
	}
	if v.State == model.StateActive.String() {
		return svc.CancelSession(ctx, id)
	}
	return v, nil
}

// statusLine is the HUD text on the top row.
func statusLine(v app.View) string {
	switch {
	case v.State == model.StateActive.String():
		return fmt.Sprintf(" %s  %3ds  score %d  (%d/%d)  q quits",
			v.Challenge.Kind, v.Remaining, v.Score.Points, v.Score.EventCount, v.Score.TotalOpportunities)
	case v.Result != nil:
		return fmt.Sprintf(" %s  done  %s  %d coins  r replays, q quits",
			v.Challenge.Kind, stars(v.Result.Stars), v.Result.Coins)
	case v.Error != "":
		return " " + v.State + ": " + v.Error
	default:
		return " " + v.State
	}
}

// summary is printed once the screen is gone.
func summary(v app.View) string {
	if v.Result == nil {
		return fmt.Sprintf("%s session %s: %s", v.Challenge.Kind, v.ID, v.State)
	}
	r := v.Result
	return fmt.Sprintf("%s session %s: %s %d/%d, %d moves, %d coins",
		v.Challenge.Kind, v.ID, stars(r.Stars), r.RawCount, r.TotalOpportunities, r.SecondaryCount, r.Coins)
}

func stars(n int) string {
	out := make([]rune, 0, 3)
	for i := 0; i < 3; i++ {
		if i < n {
			out = append(out, '★')
		} else {
			out = append(out, '☆')
		}
	}
	return string(out)
}
