package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gwillem/handremap/pkg/config"
	"github.com/gwillem/handremap/pkg/glove"
	"github.com/gwillem/handremap/pkg/handtrack"
	"github.com/gwillem/handremap/pkg/retarget"
	"github.com/gwillem/handremap/pkg/skeleton"
	"github.com/gwillem/handremap/pkg/xform"
)

// session is everything a command needs to evaluate the configured node.
type session struct {
	cfg       *config.Config
	container *skeleton.BoneContainer
	node      *retarget.Node
	source    handtrack.Source
	static    *handtrack.StaticSource // set for the static source kind
	close     func()
}

// openSession loads the config, skeleton and mapping and connects the
// tracking source. curls poses the static source.
func openSession(ctx context.Context, curls map[handtrack.Finger]float64) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config (run 'handremap setup' first): %w", err)
	}
	c, err := cfg.LoadContainer()
	if err != nil {
		return nil, fmt.Errorf("load skeleton: %w", err)
	}
	node, err := cfg.Node()
	if err != nil {
		return nil, fmt.Errorf("build mapping: %w", err)
	}
	node.Logger = slog.Default()
	node.InitializeBoneReferences(c)

	s := &session{cfg: cfg, container: c, node: node, close: func() {}}
	hand := node.Table.Hand

	switch cfg.Source.Kind {
	case config.SourceWebSocket:
		stream, err := handtrack.DialStream(ctx, cfg.Source.URL)
		if err != nil {
			return nil, err
		}
		stream.Logger = slog.Default()
		s.source = stream
		s.close = func() { stream.Close() }

	case config.SourceGlove:
		if !cfg.Source.IsCalibrated() {
			return nil, fmt.Errorf("glove not calibrated, run 'handremap setup' first")
		}
		g, err := glove.Open(cfg.Source.Port, hand, cfg.Source.Calibration)
		if err != nil {
			return nil, err
		}
		if err := g.Release(ctx); err != nil {
			slog.Warn("could not release glove servos", "err", err)
		}
		gctx, cancel := context.WithCancel(ctx)
		go g.Run(gctx, cfg.Hz, func(err error) {
			slog.Debug("glove read failed", "err", err)
		})
		s.source = g
		s.close = func() {
			cancel()
			g.Close()
		}

	default:
		s.static = handtrack.NewStaticSource(handtrack.FrameFromCurls(hand, xform.Identity(), curls))
		s.source = s.static
	}
	return s, nil
}

func evalContext(s *session) retarget.EvalContext {
	return retarget.EvalContext{Pose: skeleton.NewRefPose(s.container), Source: s.source}
}

// parseCurls reads finger:value pairs such as "index:0.8".
func parseCurls(in map[string]float64) (map[handtrack.Finger]float64, error) {
	curls := make(map[handtrack.Finger]float64, len(in))
	for name, v := range in {
		f, err := handtrack.ParseFinger(name)
		if err != nil {
			return nil, err
		}
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("curl for %s must be within 0..1, got %g", strings.ToLower(name), v)
		}
		curls[f] = v
	}
	return curls, nil
}
