package classify_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"tidy-go/internal/classify"
	"tidy-go/internal/testutil"
	"tidy-go/internal/tidy"
)

func mustRules(t *testing.T, rules []tidy.CategoryRule) *tidy.RuleSet {
	t.Helper()
	rs, err := tidy.NewRuleSet(rules)
	if err != nil {
		t.Fatalf("NewRuleSet() error = %v", err)
	}
	return rs
}

func TestClassifier_Precedence(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	march := time.Date(2023, 3, 9, 0, 0, 0, 0, time.UTC)
	fsmgr.AddFileAt("/in/invoice-march.pdf", []byte("pdf"), march)
	fsmgr.AddFileAt("/in/notes.txt", []byte("txt"), march)
	fsmgr.AddFileAt("/in/mystery.bin", []byte("bin"), march)
	fsmgr.AddFileAt("/in/pinned.txt", []byte("pin"), march)
	fsmgr.AddFileAt("/in/Vacation-photo.JPG", []byte("jpg"), march)

	rules := mustRules(t, []tidy.CategoryRule{
		{Name: "Documents", Extensions: []string{".txt", ".pdf"}},
		{Name: "Images", Extensions: []string{".jpg"}},
		{Name: "Finance", Tags: []string{"invoice"}},
	})

	tests := []struct {
		name     string
		opts     classify.Options
		path     string
		want     string
		wantKind tidy.RuleKind
	}{
		{
			name:     "extension",
			opts:     classify.Options{Rules: rules},
			path:     "/in/notes.txt",
			want:     "Documents",
			wantKind: tidy.RuleExtension,
		},
		{
			name:     "no rule falls to default",
			opts:     classify.Options{Rules: rules},
			path:     "/in/mystery.bin",
			want:     tidy.Uncategorized,
			wantKind: tidy.RuleDefault,
		},
		{
			name:     "manual beats everything",
			opts:     classify.Options{Rules: rules, Manual: map[string]string{"/in/pinned.txt": "Keep"}, Tags: []string{"pin"}},
			path:     "/in/pinned.txt",
			want:     "Keep",
			wantKind: tidy.RuleManual,
		},
		{
			name:     "tag mapped to a rule beats extension",
			opts:     classify.Options{Rules: rules, Tags: []string{"INVOICE"}},
			path:     "/in/invoice-march.pdf",
			want:     "Finance",
			wantKind: tidy.RuleTag,
		},
		{
			name:     "unmapped tag becomes the category",
			opts:     classify.Options{Rules: rules, Tags: []string{"vacation"}},
			path:     "/in/Vacation-photo.JPG",
			want:     "vacation",
			wantKind: tidy.RuleTag,
		},
		{
			name:     "first matching tag wins",
			opts:     classify.Options{Rules: rules, Tags: []string{"photo", "vacation"}},
			path:     "/in/Vacation-photo.JPG",
			want:     "photo",
			wantKind: tidy.RuleTag,
		},
		{
			name:     "extension before tag when configured",
			opts:     classify.Options{Rules: rules, Tags: []string{"invoice"}, Precedence: []tidy.RuleKind{tidy.RuleManual, tidy.RuleExtension, tidy.RuleTag, tidy.RuleDate, tidy.RuleDefault}},
			path:     "/in/invoice-march.pdf",
			want:     "Documents",
			wantKind: tidy.RuleExtension,
		},
		{
			name:     "date category for unmatched files",
			opts:     classify.Options{Rules: rules, DateMode: tidy.DateCategory},
			path:     "/in/mystery.bin",
			want:     "2023-03",
			wantKind: tidy.RuleDate,
		},
		{
			name:     "date ignored in subfolder mode",
			opts:     classify.Options{Rules: rules, DateMode: tidy.DateSubfolder},
			path:     "/in/mystery.bin",
			want:     tidy.Uncategorized,
			wantKind: tidy.RuleDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := classify.New(tt.opts)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			got := c.Classify(fsmgr.Record(tt.path))
			if got.Category != tt.want || got.Kind != tt.wantKind {
				t.Errorf("Classify(%s) = %+v, want {%s %s}", tt.path, got, tt.want, tt.wantKind)
			}
		})
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	t.Parallel()
	fsmgr := testutil.NewMockFilesystemManager()
	for _, p := range []string{"/a/x.txt", "/a/y.jpg", "/a/z", "/a/report-final.doc", "/a/b/c.md"} {
		fsmgr.AddFile(p, []byte(p))
	}
	c, err := classify.New(classify.Options{
		Rules: mustRules(t, tidy.DefaultRules()),
		Tags:  []string{"final"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	records := fsmgr.Records()
	first := make(map[string]string)
	for _, r := range records {
		first[r.Path] = c.Classify(r).Category
	}

	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 5; round++ {
		rng.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })
		for _, r := range records {
			if got := c.Classify(r).Category; got != first[r.Path] {
				t.Fatalf("round %d: Classify(%s) = %s, first run gave %s", round, r.Path, got, first[r.Path])
			}
		}
	}
}

func TestNew_Validation(t *testing.T) {
	rules := mustRules(t, nil)
	tests := []struct {
		name string
		opts classify.Options
	}{
		{"missing rules", classify.Options{}},
		{"bad manual category", classify.Options{Rules: rules, Manual: map[string]string{"/a": "x/y"}}},
		{"bad tag", classify.Options{Rules: rules, Tags: []string{".."}}},
		{"manual not first", classify.Options{Rules: rules, Precedence: []tidy.RuleKind{tidy.RuleTag, tidy.RuleManual, tidy.RuleDefault}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := classify.New(tt.opts)
			var verr *tidy.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("New() error = %v, want *ValidationError", err)
			}
		})
	}
}
