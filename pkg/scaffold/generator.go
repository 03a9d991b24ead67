// Package scaffold generates NestJS feature modules from entity
// descriptions using embedded templates.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/autostack/autostack/pkg/domain/project"
	"github.com/autostack/autostack/pkg/prompt"
	"github.com/autostack/autostack/pkg/textutil"
)

//go:embed templates/nest/*.templ
var nestTemplates embed.FS

// moduleFiles maps each template onto the file it produces, relative to
// the module directory.
var moduleFiles = []struct {
	template string
	target   string
}{
	{"controller.ts.templ", "${entity_lower_underline}.controller.ts"},
	{"controller.spec.ts.templ", "${entity_lower_underline}.controller.spec.ts"},
	{"service.ts.templ", "${entity_lower_underline}.service.ts"},
	{"service.spec.ts.templ", "${entity_lower_underline}.service.spec.ts"},
	{"module.ts.templ", "${entity_lower_underline}.module.ts"},
	{"create-dto.ts.templ", "dto/create-${entity_lower_underline}.dto.ts"},
	{"update-dto.ts.templ", "dto/update-${entity_lower_underline}.dto.ts"},
	{"entity.ts.templ", "model/${entity_lower_underline}.entity.ts"},
}

const appModuleTemplate = "app.module.ts.templ"

// Generator writes module sources under ProjectDir/src.
type Generator struct {
	ProjectDir string
	Templates  fs.FS
	Logger     *slog.Logger
}

func NewGenerator(projectDir string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	sub, _ := fs.Sub(nestTemplates, "templates/nest") //nolint:errcheck // static path
	return &Generator{ProjectDir: projectDir, Templates: sub, Logger: logger}
}

// Variables returns the placeholder values used for entity.
func Variables(entity project.Entity) map[string]string {
	underline := textutil.ToUnderline(entity.Name)
	return map[string]string{
		"entity_lower_camel":          textutil.UnderlineToLowerCamelCase(underline),
		"entity_upper_camel":          textutil.UnderlineToUpperCamelCase(underline),
		"entity_lower_underline":      underline,
		"entity_attribute":            RenderEntityAttributes(entity.Attributes),
		"create_entity_dto_attribute": RenderDTOAttributes(entity.Attributes),
		"update_entity_dto_attribute": RenderUpdateDTOAttributes(entity.Attributes),
	}
}

// ModuleDir is the directory CreateModule writes entity's files to.
func (g *Generator) ModuleDir(entity project.Entity) string {
	return filepath.Join(g.ProjectDir, "src", textutil.ToUnderline(entity.Name))
}

// CreateModule renders every module file for entity. A file that fails
// does not stop the others; the returned error joins all failures. The
// written paths are relative to ProjectDir.
func (g *Generator) CreateModule(entity project.Entity) ([]string, error) {
	if strings.TrimSpace(entity.Name) == "" {
		return nil, errors.New("entity name is required")
	}
	vars := Variables(entity)
	dir := g.ModuleDir(entity)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create module dir: %w", err)
	}

	var written []string
	var errs []error
	for _, f := range moduleFiles {
		target, err := prompt.Expand(f.target, vars)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		full := filepath.Join(dir, filepath.FromSlash(target))
		if err := g.render(f.template, full, vars); err != nil {
			g.Logger.Warn("module file failed", "entity", entity.Name, "file", target, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", target, err))
			continue
		}
		rel, _ := filepath.Rel(g.ProjectDir, full) //nolint:errcheck // full is under ProjectDir
		written = append(written, filepath.ToSlash(rel))
	}
	g.Logger.Info("module generated", "entity", entity.Name, "files", len(written))
	return written, errors.Join(errs...)
}

// AddModuleToApp registers the modules of the given entities in
// src/app.module.ts. A missing file is generated from the template; an
// existing one keeps its content and only gains the imports it lacks.
func (g *Generator) AddModuleToApp(entities ...string) error {
	names := make([]string, 0, len(entities))
	seen := map[string]bool{}
	for _, e := range entities {
		u := textutil.ToUnderline(strings.TrimSpace(e))
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		names = append(names, u)
	}
	sort.Strings(names)

	modules := make([]appModule, 0, len(names))
	for _, u := range names {
		class := textutil.UnderlineToUpperCamelCase(u) + "Module"
		modules = append(modules, appModule{
			class:     class,
			statement: fmt.Sprintf("import { %s } from './%s/%s.module';", class, u, u),
		})
	}

	target := filepath.Join(g.ProjectDir, "src", "app.module.ts")
	existing, err := os.ReadFile(target) // #nosec G304 -- path under the project
	if errors.Is(err, os.ErrNotExist) {
		var imports, registered []string
		for _, m := range modules {
			imports = append(imports, m.statement)
			registered = append(registered, "\n    "+m.class+",")
		}
		return g.render(appModuleTemplate, target, map[string]string{
			"module_imports": strings.Join(imports, "\n"),
			"module_names":   strings.Join(registered, ""),
		})
	}
	if err != nil {
		return fmt.Errorf("read app module: %w", err)
	}

	merged, err := mergeAppModule(string(existing), modules)
	if err != nil {
		return err
	}
	if merged == string(existing) {
		return nil
	}
	return os.WriteFile(target, []byte(merged), 0o644) //nolint:gosec // generated sources
}

type appModule struct {
	class     string
	statement string
}

var (
	importStatement = regexp.MustCompile(`(?m)^import\s[^;]*;[ \t]*$`)
	moduleImports   = regexp.MustCompile(`imports\s*:\s*\[`)
)

var errNoImportsArray = errors.New("app module has no @Module imports array")

// mergeAppModule adds an import statement and an imports entry for every
// module content does not mention yet.
func mergeAppModule(content string, modules []appModule) (string, error) {
	decorator := strings.Index(content, "@Module(")
	if decorator < 0 {
		return "", errNoImportsArray
	}
	loc := moduleImports.FindStringIndex(content[decorator:])
	if loc == nil {
		return "", errNoImportsArray
	}
	open := decorator + loc[1] - 1
	closing := matchingBracket(content, open)
	if closing < 0 {
		return "", errNoImportsArray
	}

	var statements, entries []string
	for _, m := range modules {
		word := regexp.MustCompile(`\b` + regexp.QuoteMeta(m.class) + `\b`)
		if !importedClass(content, word) {
			statements = append(statements, m.statement)
		}
		if !word.MatchString(content[open:closing]) {
			entries = append(entries, m.class)
		}
	}
	if len(statements) == 0 && len(entries) == 0 {
		return content, nil
	}

	// Edit the imports array first so the offsets found above stay valid.
	if len(entries) > 0 {
		inner := content[open+1 : closing]
		body := strings.TrimRight(inner, " \t\r\n")
		tail := inner[len(body):]
		if !strings.Contains(tail, "\n") {
			tail = "\n  "
		}
		if strings.TrimSpace(body) != "" && !strings.HasSuffix(body, ",") {
			body += ","
		}
		for _, e := range entries {
			body += "\n    " + e + ","
		}
		content = content[:open+1] + body + tail + content[closing:]
	}

	if len(statements) > 0 {
		block := strings.Join(statements, "\n")
		all := importStatement.FindAllStringIndex(content, -1)
		if len(all) == 0 {
			content = block + "\n" + content
		} else {
			at := all[len(all)-1][1]
			content = content[:at] + "\n" + block + content[at:]
		}
	}
	return content, nil
}

func importedClass(content string, word *regexp.Regexp) bool {
	for _, stmt := range importStatement.FindAllString(content, -1) {
		if word.MatchString(stmt) {
			return true
		}
	}
	return false
}

// matchingBracket returns the index of the ] closing the [ at open, or -1.
func matchingBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (g *Generator) render(template, target string, vars map[string]string) error {
	raw, err := fs.ReadFile(g.Templates, path.Clean(template))
	if err != nil {
		return fmt.Errorf("read template %s: %w", template, err)
	}
	content, err := prompt.Expand(string(raw), vars)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, []byte(content), 0o644) //nolint:gosec // generated sources
}
