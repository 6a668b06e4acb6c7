package internal

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/k0pernicus/zou/internal/config"
	zouhttp "github.com/k0pernicus/zou/internal/downloaders/http"
	"github.com/k0pernicus/zou/internal/mirrors"
	"github.com/k0pernicus/zou/internal/output"
	"github.com/k0pernicus/zou/internal/utils"
	"github.com/rs/zerolog"
)

var (
	ErrOutputIsDirectory = errors.New("the local path to store the remote content already exists and is a directory")
	ErrAborted           = errors.New("download aborted by the user")
)

// Session runs one download: mirror selection, negotiation, then the
// chunked fetch into a pre-sized local file.
type Session struct {
	ID     string
	cfg    config.Config
	client *utils.ZouHTTPClient
	log    zerolog.Logger

	// Interactive hooks, replaced in tests.
	Confirm      func(question string) bool
	Prompt       func(label string) (string, error)
	PromptSecret func(label string) (string, error)
}

func NewSession(cfg config.Config) *Session {
	id := uuid.NewString()
	return &Session{
		ID:           id,
		cfg:          cfg,
		client:       utils.NewZouHTTPClient(cfg.HTTPClientConfig()),
		log:          utils.GetLogger("downloader").With().Str("session", id).Logger(),
		Confirm:      output.Confirm,
		Prompt:       output.Prompt,
		PromptSecret: output.PromptPassword,
	}
}

// Bench benchmarks every mirror candidate of the configured URL. It returns
// the ranked mirrors, the raw scores and the resource name.
func (s *Session) Bench(ctx context.Context) ([]string, []utils.MirrorScore, string, error) {
	candidates, resource, err := utils.MirrorCandidates(s.cfg.URL, s.cfg.Mirrors)
	if err != nil {
		return nil, nil, "", err
	}
	bench := mirrors.NewBench(s.client)
	scores := bench.Scores(ctx, candidates, resource)
	ranked := mirrors.RankScores(scores)
	if len(ranked) == 0 {
		return nil, scores, resource, fmt.Errorf("%w: all %d mirrors failed the benchmark", mirrors.ErrNoMirrorsAvailable, len(candidates))
	}
	return ranked, scores, resource, nil
}

// Resolve picks the fastest mirror and negotiates with it.
func (s *Session) Resolve(ctx context.Context) (utils.RemoteServerInfo, error) {
	candidates, resource, err := utils.MirrorCandidates(s.cfg.URL, s.cfg.Mirrors)
	if err != nil {
		return utils.RemoteServerInfo{}, err
	}
	ranked, err := mirrors.NewBench(s.client).Rank(ctx, candidates, resource)
	if err != nil {
		return utils.RemoteServerInfo{}, err
	}
	link := s.cfg.URL
	if ranked[0] != candidates[0] {
		if link, err = utils.JoinURL(ranked[0], resource); err != nil {
			return utils.RemoteServerInfo{}, err
		}
	}
	s.log.Debug().Str("mirror", ranked[0]).Int("candidates", len(candidates)).Msg("Mirror selected")

	creds := zouhttp.InteractiveCredentials{
		Username:     s.cfg.Username,
		Password:     s.cfg.Password,
		Prompt:       s.Prompt,
		PromptSecret: s.PromptSecret,
	}
	return zouhttp.NewNegotiator(s.client, creds).Negotiate(ctx, link)
}

// OutputPath is the configured output or the resource's base name.
func (s *Session) OutputPath() (string, error) {
	if s.cfg.Output != "" {
		return s.cfg.Output, nil
	}
	_, resource, err := utils.MirrorCandidates(s.cfg.URL, nil)
	return resource, err
}

// checkOutput refuses directories and asks before overriding a file.
func (s *Session) checkOutput(path string) error {
	stat, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", zouhttp.ErrIO, err)
	}
	if stat.IsDir() {
		return fmt.Errorf("%w: %s", ErrOutputIsDirectory, path)
	}
	if s.cfg.Force {
		output.PrintWarning(fmt.Sprintf("%s already exists and is going to be overridden", path))
		return nil
	}
	if !s.Confirm(fmt.Sprintf("%s already exists! Do you want to override it?", path)) {
		return ErrAborted
	}
	return nil
}

// Download runs the whole pipeline. On failure the partial file is removed.
func (s *Session) Download(ctx context.Context) error {
	path, err := s.OutputPath()
	if err != nil {
		return err
	}
	s.log.Debug().Str("url", s.cfg.URL).Str("output", path).Uint("threads", s.cfg.Threads).Msg("Starting download")
	if err := s.checkOutput(path); err != nil {
		return err
	}

	info, err := s.Resolve(ctx)
	if err != nil {
		return err
	}
	output.PrintInfo(fmt.Sprintf("Remote content length: %s", utils.FormatBytes(info.ContentLength)))
	threads := s.cfg.Threads
	if !info.AcceptsPartialContent {
		output.PrintWarning("The remote server does not accept partial content, downloading with one thread")
		threads = 1
	}

	file, err := zouhttp.Preallocate(path, info.ContentLength)
	if err != nil {
		return err
	}
	out, err := zouhttp.NewOutputFile(file)
	if err != nil {
		file.Close()
		s.remove(path)
		return err
	}

	opts := []zouhttp.FetcherOption{zouhttp.WithRateLimit(int(s.cfg.RateLimit))}
	var tracker *output.Tracker
	if !s.cfg.NoProgress {
		tracker = output.NewTracker(path, info.ContentLength)
		opts = append(opts, zouhttp.WithProgress(tracker))
		tracker.StartDisplay()
	}
	err = zouhttp.NewFetcher(s.client, opts...).Download(ctx, info, out, threads)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %w", zouhttp.ErrIO, closeErr)
	}
	if tracker != nil {
		tracker.StopDisplay(err)
	}
	if err != nil {
		s.log.Debug().Err(err).Msg("Download failed, erasing file")
		s.remove(path)
		return err
	}
	output.PrintSuccess(fmt.Sprintf("Your download is available in %s", path))
	return nil
}

func (s *Session) remove(path string) {
	if err := os.Remove(path); err != nil {
		output.PrintWarning(fmt.Sprintf("Cannot remove %s: %v", path, err))
	}
}
