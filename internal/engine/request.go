package engine

import (
	"fmt"
	"path/filepath"

	"tidy-go/internal/classify"
	"tidy-go/internal/filter"
	"tidy-go/internal/tidy"
)

// Request is the frozen input of one organize run.
type Request struct {
	Root     string
	DestRoot string // empty means Root
	Mode     tidy.Transfer

	Recursive     bool
	SkipHidden    bool
	OneFilesystem bool
	CaptureDates  bool
	Exclude       []string

	Rules      *tidy.RuleSet
	Manual     map[string]string
	Tags       []string
	DateMode   tidy.DateMode
	Precedence []tidy.RuleKind

	Filter         tidy.FilterCriteria
	SkipDuplicates bool
	MaxSuffix      int
}

// prepared is a validated request with its pure stages built.
type prepared struct {
	req        Request
	root       string
	destRoot   string
	classifier *classify.Classifier
	filter     *filter.Filter
}

// prepare validates req. Nothing on disk is changed; the only side effect
// is resolving the root and destination.
func (s *Service) prepare(req Request) (*prepared, error) {
	if req.Root == "" {
		return nil, &tidy.ValidationError{Field: "root", Reason: "a directory is required"}
	}
	root, err := s.resolveDir("root", req.Root)
	if err != nil {
		return nil, err
	}

	destRoot := root
	if req.DestRoot != "" {
		abs, err := filepath.Abs(req.DestRoot)
		if err != nil {
			return nil, &tidy.ValidationError{Field: "dest_root", Reason: err.Error()}
		}
		destRoot = filepath.Clean(abs)
		// A missing destination is created on demand; an existing one must be a directory.
		if info, err := s.fsmgr.Stat(destRoot); err == nil && !info.IsDir() {
			return nil, &tidy.ValidationError{Field: "dest_root", Reason: fmt.Sprintf("%s is not a directory", destRoot)}
		}
	}

	if req.Mode == "" {
		req.Mode = tidy.TransferMove
	}
	if _, err := tidy.ParseTransfer(string(req.Mode)); err != nil {
		return nil, err
	}
	if _, err := tidy.ParseDateMode(string(req.DateMode)); err != nil {
		return nil, err
	}
	if req.MaxSuffix < 0 {
		return nil, &tidy.ValidationError{Field: "max_suffix", Reason: "must not be negative"}
	}

	c, err := classify.New(classify.Options{
		Rules:      req.Rules,
		Manual:     req.Manual,
		Tags:       req.Tags,
		DateMode:   req.DateMode,
		Precedence: req.Precedence,
	})
	if err != nil {
		return nil, err
	}
	f, err := filter.New(req.Filter)
	if err != nil {
		return nil, err
	}

	return &prepared{req: req, root: root, destRoot: destRoot, classifier: c, filter: f}, nil
}

func (s *Service) resolveDir(field, raw string) (string, error) {
	p, err := s.fsmgr.Resolve(raw)
	if err != nil {
		return "", &tidy.ValidationError{Field: field, Reason: err.Error()}
	}
	if !p.IsDir() {
		return "", &tidy.ValidationError{Field: field, Reason: fmt.Sprintf("%s is not a directory", p)}
	}
	return p.String(), nil
}
