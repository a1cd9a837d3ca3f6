// Package storage persists finished runs: one directory per run with
// the star catalog as CSV and the run metadata as JSON. It also loads
// particle sets from CSV for the CLI; the pipeline core itself only
// consumes in-memory records.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/galsynth/internal/catalog"
	"github.com/san-kum/galsynth/internal/phasespace"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	Seed      int64     `json:"seed"`
	Particles int       `json:"particles"`
	Stars     int       `json:"stars"`
	Excluded  int       `json:"excluded"`
	Bands     []string  `json:"bands"`
	Columns   []string  `json:"columns,omitempty"`
}

// Save writes one run directory and returns its id.
func (s *Store) Save(name string, seed int64, particles int, cat *catalog.Catalog) (string, error) {
	runID := fmt.Sprintf("%s_%s", name, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Name:      name,
		Timestamp: time.Now(),
		Seed:      seed,
		Particles: particles,
		Stars:     cat.Len(),
		Excluded:  cat.Excluded,
		Bands:     cat.Bands,
		Columns:   cat.ColumnNames(),
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := writeCatalog(filepath.Join(runDir, "catalog.csv"), cat); err != nil {
		return "", err
	}
	return runID, nil
}

func writeCatalog(path string, cat *catalog.Catalog) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"id", "parentid", "mass",
		"px", "py", "pz", "vx", "vy", "vz",
		"age", "feh", "log10_nh",
	}
	header = append(header, cat.Bands...)
	extras := cat.ColumnNames()
	header = append(header, extras...)
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, st := range cat.Stars {
		row[0] = strconv.Itoa(st.ID)
		row[1] = strconv.Itoa(st.ParentID)
		row[2] = formatFloat(st.Mass)
		for d := 0; d < 3; d++ {
			row[3+d] = formatFloat(st.Pos[d])
			row[6+d] = formatFloat(st.Vel[d])
		}
		row[9] = formatFloat(st.Age)
		row[10] = formatFloat(st.FeH)
		row[11] = formatFloat(st.Log10NH)

		col := 12
		for _, band := range cat.Bands {
			row[col] = formatFloat(st.Mags[band])
			col++
		}
		for _, name := range extras {
			vals, _ := cat.Column(name)
			row[col] = formatFloat(vals[i])
			col++
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Load reads one run's metadata by id.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// List returns metadata for every stored run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []RunMetadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue // not a run directory
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(a, b int) bool {
		return runs[a].Timestamp.After(runs[b].Timestamp)
	})
	return runs, nil
}

// particle CSV columns; log10_nh is optional.
var particleCols = []string{"mass", "px", "py", "pz", "vx", "vy", "vz", "age", "feh"}

// LoadParticles reads a particle set from CSV. The header must name
// the required columns in any order; unknown columns are ignored.
func LoadParticles(path string) ([]phasespace.Particle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("storage: %s has no particle rows", path)
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range particleCols {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("storage: missing column %s in %s", name, path)
		}
	}
	nhCol, hasNH := index["log10_nh"]

	particles := make([]phasespace.Particle, 0, len(records)-1)
	for line, rec := range records[1:] {
		get := func(name string) (float64, error) {
			return strconv.ParseFloat(strings.TrimSpace(rec[index[name]]), 64)
		}

		var p phasespace.Particle
		var fields [9]float64
		for i, name := range particleCols {
			v, err := get(name)
			if err != nil {
				return nil, fmt.Errorf("storage: line %d column %s: %w", line+2, name, err)
			}
			fields[i] = v
		}
		p.Mass = fields[0]
		p.Pos = phasespace.Vec3{fields[1], fields[2], fields[3]}
		p.Vel = phasespace.Vec3{fields[4], fields[5], fields[6]}
		p.Age = fields[7]
		p.FeH = fields[8]

		p.Log10NH = math.NaN()
		if hasNH && strings.TrimSpace(rec[nhCol]) != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[nhCol]), 64)
			if err != nil {
				return nil, fmt.Errorf("storage: line %d column log10_nh: %w", line+2, err)
			}
			p.Log10NH = v
		}
		particles = append(particles, p)
	}
	return particles, nil
}
