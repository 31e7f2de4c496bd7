package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/gwillem/handremap/pkg/retarget"
	"github.com/gwillem/handremap/pkg/server"
)

type ServeCommand struct {
	Addr string             `long:"addr" default:":8080" description:"Listen address"`
	Hz   int                `long:"hz" description:"Evaluation frequency (overrides the config)"`
	Curl map[string]float64 `long:"curl" description:"Initial finger curl for the static source, e.g. --curl index:0.8"`
}

func (c *ServeCommand) Execute(args []string) error {
	curls, err := parseCurls(c.Curl)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := openSession(ctx, curls)
	if err != nil {
		return err
	}
	defer s.close()

	hz := s.cfg.Hz
	if c.Hz > 0 {
		hz = c.Hz
	}
	drv, err := retarget.NewDriver(retarget.DriverConfig{
		Node:      s.node,
		Container: s.container,
		Source:    s.source,
		Hz:        hz,
	})
	if err != nil {
		return err
	}

	go func() {
		for msg := range drv.Logs() {
			log.Print(msg)
		}
	}()
	go func() {
		if err := drv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Driver error: %v", err)
		}
	}()

	srv := &server.Server{Driver: drv, Table: s.node.Table, Static: s.static}
	fmt.Printf("Serving %s on %s (GET /pose, /pose/{bone}, /mapping, /healthz", s.container.Skeleton().Name, c.Addr)
	if s.static != nil {
		fmt.Print("; POST /frame")
	}
	fmt.Println(")")
	return srv.ListenAndServe(c.Addr, os.Stdout)
}
