package main

import (
	"encoding/json"
	"fmt"
	"github.com/jackwhelpton/fasthttp-routing/v2"
	"github.com/ugvlab/pathtracker/tracking"
	"github.com/valyala/fasthttp"
)

type APIServer struct {
	Server *TrackerServer
}

func (s *APIServer) ListenAndServe(addr string) error {
	router := routing.New()

	router.Get("/params", s.listParamsHandler())
	router.Post("/params", s.setParamsHandler())

	router.Post("/controller/reset", s.resetControllerHandler())

	router.Get("/stats", s.getStatsHandler())

	return fasthttp.ListenAndServe(addr, router.HandleRequest)
}

func (s *APIServer) listParamsHandler() routing.Handler {
	return func(c *routing.Context) error {
		response := &struct {
			Desired tracking.Params
			Active  tracking.Params
		}{
			Desired: s.Server.DesiredParams(),
			Active:  s.Server.ActiveParams(),
		}

		b, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("could not marshal parameters: err = %w", err)
		}
		return c.Write(b)
	}
}

func (s *APIServer) setParamsHandler() routing.Handler {
	return func(c *routing.Context) error {
		var params tracking.Params
		if err := c.Read(&params); err != nil {
			return fmt.Errorf("could not parse body: %w", err)
		}

		stored := s.Server.UpdateParams(params)
		if stored.LookaheadDistance != params.LookaheadDistance {
			return c.Write(fmt.Sprintf("parameters written; lookahead_distance raised to %v\n", stored.LookaheadDistance))
		}
		return c.Write("parameters written\n")
	}
}

func (s *APIServer) resetControllerHandler() routing.Handler {
	return func(c *routing.Context) error {
		s.Server.ResetController()
		return c.Write("controller reset\n")
	}
}

func (s *APIServer) getStatsHandler() routing.Handler {
	return func(c *routing.Context) error {
		b, err := json.Marshal(s.Server.Stats())
		if err != nil {
			return fmt.Errorf("could not marshal stats: err = %w", err)
		}
		return c.Write(b)
	}
}
