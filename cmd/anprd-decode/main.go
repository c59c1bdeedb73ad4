// Command anprd-decode replays saved probability matrices through the full
// recognition pipeline: batching, beam decode, confidence gate, correction.
// Each argument is a JSON file holding one [timesteps][classes] matrix
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"anprd/internal/core/ctc"
	"anprd/internal/core/version"
	"anprd/internal/modkit"
	"anprd/internal/modkit/module"
	"anprd/internal/platform/config"
	"anprd/internal/platform/logger"

	recdom "anprd/internal/services/recognition/domain"
	recmod "anprd/internal/services/recognition/module"
)

func mustSetEnv(k, v string) {
	if v != "" {
		_ = os.Setenv(k, v)
	}
}

// replay hands back the preloaded matrix whose index is stored in the
// image payload, standing in for a real inference backend
type replay struct {
	matrices []ctc.Matrix
}

func (r *replay) Recognize(_ context.Context, images []recdom.Image) ([]ctc.Matrix, error) {
	out := make([]ctc.Matrix, len(images))
	for i, img := range images {
		idx, err := strconv.Atoi(string(img.Pixels))
		if err != nil || idx < 0 || idx >= len(r.matrices) {
			return nil, fmt.Errorf("replay: bad matrix ref %q", img.Pixels)
		}
		out[i] = r.matrices[idx]
	}
	return out, nil
}

// parseMatrix accepts either a bare [timesteps][classes] array or an
// {"alphabet": ..., "matrix": ...} envelope as produced by export tooling
func parseMatrix(b []byte) (ctc.Matrix, error) {
	var env struct {
		Alphabet string     `json:"alphabet"`
		Matrix   ctc.Matrix `json:"matrix"`
	}
	if err := json.Unmarshal(b, &env); err == nil && env.Matrix != nil {
		return env.Matrix, nil
	}
	var m ctc.Matrix
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

type line struct {
	File          string  `json:"file"`
	Text          string  `json:"text,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
	Country       string  `json:"country,omitempty"`
	Format        string  `json:"format,omitempty"`
	Substitutions int     `json:"substitutions,omitempty"`
	Error         string  `json:"error,omitempty"`
}

func main() {
	root := config.New()
	l := logger.Get()

	var (
		beam      = flag.Int("beam", 5, "beam width (>=1)")
		subs      = flag.Int("subs", 2, "max confusable substitutions")
		countries = flag.String("countries", "", "CSV of country codes (empty = all)")
		minConf   = flag.Float64("min-conf", 0, "minimum candidate confidence in [0,1]")
		batch     = flag.Int("batch", 8, "scheduler batch size")
		wait      = flag.Duration("wait", 100*time.Millisecond, "max batching wait")
		showVer   = flag.Bool("version", false, "print build info and exit")
	)
	flag.Parse()
	if *showVer {
		_ = json.NewEncoder(os.Stdout).Encode(version.Info())
		return
	}
	files := flag.Args()
	if len(files) == 0 {
		log.Fatal("usage: anprd-decode [flags] matrix.json ...")
	}

	rp := &replay{matrices: make([]ctc.Matrix, len(files))}
	for i, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}
		m, err := parseMatrix(b)
		if err != nil {
			log.Fatalf("parse %s: %v", f, err)
		}
		rp.matrices[i] = m
	}

	// Pass CLI flags into ENGINE_* so the module can read its own config
	mustSetEnv("ENGINE_BEAM_WIDTH", strconv.Itoa(*beam))
	mustSetEnv("ENGINE_MAX_SUBSTITUTIONS", strconv.Itoa(*subs))
	mustSetEnv("ENGINE_COUNTRIES", *countries)
	mustSetEnv("ENGINE_MIN_CONFIDENCE", strconv.FormatFloat(*minConf, 'f', -1, 64))
	mustSetEnv("ENGINE_BATCH_SIZE", strconv.Itoa(*batch))
	mustSetEnv("ENGINE_MAX_WAIT", wait.String())

	deps := modkit.Deps{Cfg: root, Log: *l}

	rm := recmod.New(
		deps,
		recmod.Options{},
		modkit.WithPorts(recdom.Ports{Recognizer: rp}),
	)
	module.Register(rm.Name(), rm.Ports())
	ports := rm.Ports().(recmod.Ports)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ports.Runner.Run(ctx) }()

	pendings := make([]*recdom.Pending, len(files))
	for i := range files {
		p, err := ports.Submitter.Submit(ctx, recdom.Image{
			Width: 1, Height: 1, Pixels: []byte(strconv.Itoa(i)),
		})
		if err != nil {
			l.Fatal().Err(err).Str("file", files[i]).Msg("submit failed")
		}
		pendings[i] = p
	}

	enc := json.NewEncoder(os.Stdout)
	failed := 0
	for i, p := range pendings {
		out := line{File: files[i]}
		res, err := p.Wait(ctx)
		if err != nil {
			out.Error = err.Error()
			failed++
		} else {
			out.Text = res.Text
			out.Confidence = res.Confidence
			out.Country = res.CountryCode
			out.Format = res.FormatName
			out.Substitutions = res.Substitutions
		}
		_ = enc.Encode(out)
	}

	cancel()
	if err := <-done; err != nil {
		l.Error().Err(err).Msg("scheduler exited dirty")
	}
	if failed > 0 {
		os.Exit(1)
	}
}
