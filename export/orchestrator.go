package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/Adam-Noble-01/glbexport/config"
	"github.com/Adam-Noble-01/glbexport/flatten"
	"github.com/Adam-Noble-01/glbexport/glb"
	"github.com/Adam-Noble-01/glbexport/internal/logger"
	"github.com/Adam-Noble-01/glbexport/scene"
	"github.com/Adam-Noble-01/glbexport/texture"
)

// Failure records a partition that could not be exported.
type Failure struct {
	Partition string
	Err       error
}

// Report is the user-visible outcome: files written, partitions failed,
// validation warnings. An error from Export means the run as a whole
// failed and nothing useful was produced.
type Report struct {
	FilesWritten []string
	Failures     []Failure
	Warnings     []string
}

var layerPrefixRe = regexp.MustCompile(`^(\d+)`)

// LayerPrefix parses the leading integer of a layer name ("10_Wall" -> 10).
func LayerPrefix(layer string) (int, bool) {
	m := layerPrefixRe.FindString(layer)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Export runs the full pipeline: flatten, partition by tag range, then one
// GLB per non-empty partition. Partition failures are collected and the
// remaining partitions still complete; a run-level error is returned only
// when nothing can be exported at all.
func Export(sc *scene.Scene, outDir string, cfg *config.Config) (*Report, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	progress := func(stage string, done, total int) {
		if cfg.Progress != nil {
			cfg.Progress(stage, done, total)
		}
	}

	var exclude *regexp.Regexp
	if cfg.ExcludedLayerPattern != "" {
		var err error
		exclude, err = regexp.Compile(cfg.ExcludedLayerPattern)
		if err != nil {
			return nil, errors.Wrapf(err, "bad excluded_layer_pattern %q", cfg.ExcludedLayerPattern)
		}
	}

	progress("flatten", 0, 1)
	tris, err := flatten.Flatten(sc.Roots, flatten.Options{
		Exclude:  exclude,
		MaxDepth: cfg.MaxNestingDepth,
		DefaultMaterial: &scene.Material{
			Name:  "Default",
			Color: [4]float64{1, 1, 1, 1},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "scene flattening failed")
	}
	progress("flatten", 1, 1)

	// Partition by the leading integer of the layer name. Layers with no
	// prefix, a skip-range prefix, or an unmatched prefix are silently
	// omitted; that is the partitioning contract, not an error. Resolution
	// is memoized per prefix; an empty name marks an omitted prefix.
	partitions := map[string][]flatten.Triangle{}
	byPrefix := map[int]string{}
	for _, t := range tris {
		n, ok := LayerPrefix(t.Layer)
		if !ok {
			continue
		}
		name, hit := byPrefix[n]
		if !hit {
			name, _ = cfg.PartitionFor(n)
			byPrefix[n] = name
		}
		if name == "" {
			continue
		}
		partitions[name] = append(partitions[name], t)
	}
	if len(partitions) == 0 {
		return nil, errors.New("no entities matched any configured tag range")
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory %q", outDir)
	}

	cache, err := texture.NewCache(cfg.Textures)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := cache.Close(); cerr != nil {
			logger.Sugar.Warnw("failed to clean texture cache", "err", cerr)
		}
	}()

	names := make([]string, 0, len(partitions))
	for name := range partitions {
		names = append(names, name)
	}
	sort.Strings(names)

	report := &Report{}
	for i, name := range names {
		progress("export", i, len(names))
		path := filepath.Join(outDir, glb.FileName(name))

		if err := exportPartition(path, partitions[name], cfg, cache, sc.BulkWriter); err != nil {
			logger.Sugar.Errorw("partition export failed", "partition", name, "err", err)
			report.Failures = append(report.Failures, Failure{Partition: name, Err: err})
			continue
		}
		report.FilesWritten = append(report.FilesWritten, path)

		info, err := glb.Validate(path)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: validation could not run: %v", name, err))
			continue
		}
		for _, c := range info.Chunks {
			logger.Sugar.Debugw("glb chunk", "file", name, "type", fmt.Sprintf("0x%08X", c.Type), "length", c.Length)
		}
		for _, w := range info.Warnings {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", name, w))
		}
	}
	progress("export", len(names), len(names))

	if len(report.FilesWritten) == 0 {
		return report, errors.New("every partition failed to export")
	}
	return report, nil
}

// exportPartition builds one GLB document and writes it. Any error here is
// partition-fatal: the file is skipped, other partitions still run.
func exportPartition(path string, tris []flatten.Triangle, cfg *config.Config,
	cache *texture.Cache, bulk scene.TextureWriter) error {

	s := NewSession(cfg, cache, bulk)
	for _, g := range GroupTriangles(tris) {
		if err := s.BuildMesh(g); err != nil {
			return errors.Wrapf(err, "mesh construction failed for layer %q", g.Layer)
		}
	}
	return glb.Write(s.Doc, path)
}
