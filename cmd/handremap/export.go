package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gwillem/handremap/pkg/retarget"
	"github.com/gwillem/handremap/pkg/skeleton"
)

type ExportCommand struct {
	Out     string             `short:"o" long:"out" default:"pose.glb" description:"Output file (.glb or .gltf)"`
	Curl    map[string]float64 `long:"curl" description:"Finger curl for the static source, e.g. --curl index:0.8"`
	Timeout time.Duration      `long:"timeout" default:"2s" description:"How long to wait for a live frame"`
}

func (c *ExportCommand) Execute(args []string) error {
	curls, err := parseCurls(c.Curl)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	s, err := openSession(context.Background(), curls)
	if err != nil {
		return err
	}
	defer s.close()

	if !s.node.IsValidToEvaluate(s.container) {
		return fmt.Errorf("skeleton %s: %w", s.container.Skeleton().Name, retarget.ErrNotValid)
	}

	// Live sources may need a moment before the first frame arrives.
	var bones []retarget.BoneTransform
	pose := skeleton.NewRefPose(s.container)
	for {
		bones = s.node.Evaluate(retarget.EvalContext{Pose: pose, Source: s.source})
		if bones != nil {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("export: %w", retarget.ErrNoFrame)
		case <-time.After(20 * time.Millisecond):
		}
	}
	retarget.Apply(pose, bones)

	f, err := os.Create(c.Out)
	if err != nil {
		return err
	}
	binary := !strings.EqualFold(filepath.Ext(c.Out), ".gltf")
	if err := skeleton.ExportGLTF(f, pose, binary); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Printf("Wrote %d retargeted bones of %s to %s\n", len(bones), s.container.Skeleton().Name, c.Out)
	return nil
}
