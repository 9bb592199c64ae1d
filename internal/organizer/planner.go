package organizer

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"reelkeeper/internal/config"
	"reelkeeper/internal/logging"
	"reelkeeper/internal/media"
	"reelkeeper/internal/services"
	"reelkeeper/internal/textutil"
)

// Planner computes library destinations for matched files.
type Planner struct {
	root      string
	library   config.Library
	operation OperationType
	logger    *slog.Logger
	newID     func() string
}

// NewPlanner validates the library templates.
func NewPlanner(root string, library config.Library, logger *slog.Logger) (*Planner, error) {
	root = strings.TrimSpace(root)
	if root == "" || !filepath.IsAbs(root) {
		return nil, services.Wrap(services.ErrConfiguration, "organizing", "new planner",
			fmt.Sprintf("library root %q must be an absolute path", root), nil)
	}
	op, ok := ParseOperationType(library.Operation)
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "organizing", "new planner",
			fmt.Sprintf("unsupported operation %q", library.Operation), nil)
	}
	templates := map[string]string{
		"tv folder":    library.TVFolderTemplate,
		"tv file":      library.TVFileTemplate,
		"movie folder": library.MovieFolderTemplate,
		"movie file":   library.MovieFileTemplate,
	}
	for name, tmpl := range templates {
		if err := ValidateTemplate(name, tmpl); err != nil {
			return nil, err
		}
	}
	return &Planner{
		root:      filepath.Clean(root),
		library:   library,
		operation: op,
		logger:    logging.NewComponentLogger(logger, "planner"),
		newID:     func() string { return uuid.NewString() },
	}, nil
}

// NewPlannerFromConfig plans under cfg.Paths.LibraryDir.
func NewPlannerFromConfig(cfg *config.Config, logger *slog.Logger) (*Planner, error) {
	return NewPlanner(cfg.Paths.LibraryDir, cfg.Library, logger)
}

// Plan returns one operation per matched file. Unmatched files and files
// already at their destination are left out. Colliding destinations get a
// numeric suffix in plan order.
func (p *Planner) Plan(groups []*media.Group) []FileOperation {
	var plan []FileOperation
	taken := make(map[string]bool)
	for _, g := range groups {
		if g == nil {
			continue
		}
		for _, f := range g.Files {
			if f == nil || f.Match == nil {
				continue
			}
			dest := p.destination(g, f)
			if filepath.Clean(dest) == filepath.Clean(f.Path) {
				p.logger.Debug("file already in place", logging.String("path", f.Path))
				continue
			}
			dest = uniqueDestination(dest, taken)
			taken[dest] = true
			plan = append(plan, FileOperation{
				ID:          p.newID(),
				Type:        p.operation,
				Source:      f.Path,
				Destination: dest,
				Size:        f.Size,
				GroupTitle:  g.Title,
			})
		}
	}
	p.logger.Info("plan computed", logging.Int("groups", len(groups)), logging.Int("operations", len(plan)))
	return plan
}

func (p *Planner) destination(g *media.Group, f *media.ScannedFile) string {
	values := valuesFor(g, f)
	var base, folderTmpl, fileTmpl string
	if f.Match.MediaType == media.MediaTypeTV {
		base, folderTmpl, fileTmpl = p.library.TVDir, p.library.TVFolderTemplate, p.library.TVFileTemplate
		if f.Metadata.Episode <= 0 {
			fileTmpl = ""
		}
	} else {
		base, folderTmpl, fileTmpl = p.library.MoviesDir, p.library.MovieFolderTemplate, p.library.MovieFileTemplate
	}

	segments := []string{p.root}
	if base != "" {
		if filepath.IsAbs(base) {
			segments = []string{filepath.Clean(base)}
		} else {
			segments = append(segments, base)
		}
	}
	for _, part := range strings.Split(renderTemplate(folderTmpl, values), "/") {
		if clean := textutil.SanitizeFileName(part); clean != "" {
			segments = append(segments, clean)
		}
	}
	name := textutil.SanitizeFileName(f.Name())
	if fileTmpl != "" {
		if rendered := textutil.SanitizeFileName(renderTemplate(fileTmpl, values)); rendered != "" {
			name = rendered
		}
	}
	return filepath.Join(append(segments, name)...)
}

// templateValues feeds the template placeholders.
type templateValues struct {
	Title      string
	Quality    string
	Ext        string
	Year       int
	Season     int
	Episode    int
	EpisodeEnd int
}

func valuesFor(g *media.Group, f *media.ScannedFile) templateValues {
	v := templateValues{
		Title:      f.Match.Title,
		Quality:    f.Metadata.Quality,
		Ext:        f.Ext(),
		Year:       f.Match.Year,
		Season:     f.Metadata.Season,
		Episode:    f.Metadata.Episode,
		EpisodeEnd: f.Metadata.EpisodeEnd,
	}
	if strings.TrimSpace(v.Title) == "" {
		v.Title = g.Title
	}
	// Titles must never introduce path separators.
	v.Title = textutil.SanitizeFileName(v.Title)
	if v.Year == 0 {
		v.Year = f.Metadata.Year
	}
	if v.Season <= 0 {
		v.Season = g.Season
	}
	if v.Season <= 0 {
		v.Season = 1
	}
	return v
}

var (
	emptyParens    = regexp.MustCompile(`\s*(\(\s*\)|\[\s*\])`)
	repeatedSpaces = regexp.MustCompile(` {2,}`)
)

func renderTemplate(tmpl string, v templateValues) string {
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		m := placeholderPattern.FindStringSubmatch(token)
		width, _ := strconv.Atoi(m[2])
		switch m[1] {
		case "title":
			return v.Title
		case "year":
			if v.Year == 0 {
				return ""
			}
			return strconv.Itoa(v.Year)
		case "season":
			return pad(v.Season, width)
		case "episode":
			if v.EpisodeEnd > v.Episode {
				return pad(v.Episode, width) + "-E" + pad(v.EpisodeEnd, width)
			}
			return pad(v.Episode, width)
		case "quality":
			return v.Quality
		case "ext":
			return v.Ext
		}
		return token
	})
	out = emptyParens.ReplaceAllString(out, "")
	out = repeatedSpaces.ReplaceAllString(out, " ")
	return strings.Trim(out, " -")
}

func pad(n, width int) string {
	return fmt.Sprintf("%0*d", width, n)
}

func uniqueDestination(dest string, taken map[string]bool) string {
	if !taken[dest] {
		return dest
	}
	ext := filepath.Ext(dest)
	stem := strings.TrimSuffix(dest, ext)
	for n := 2; ; n++ {
		candidate := stem + " (" + strconv.Itoa(n) + ")" + ext
		if !taken[candidate] {
			return candidate
		}
	}
}
