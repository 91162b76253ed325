package sources

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/xuri/excelize/v2"

	"impactetl/internal/config"
	"impactetl/internal/errors"
)

// Bootstrapper fabricates a deliberately messy substitute for any raw
// extract that is missing, so a fresh checkout runs end to end. The mess
// mirrors what real exports actually contain: duplicate IDs, mixed date
// formats, city spelling drift, Yes/No/1/0 attendance flags, blanks.
// Generation is seeded, so two runs from the same seed produce identical
// raw files.
type Bootstrapper struct {
	paths  *config.Paths
	seed   int64
	logger *slog.Logger
}

// NewBootstrapper creates a bootstrap generator.
func NewBootstrapper(paths *config.Paths, seed int64, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrapper{paths: paths, seed: seed, logger: logger}
}

// EnsureRawFiles generates any missing raw extract. Existing files are
// never touched. Returns the names of the sources it fabricated.
func (b *Bootstrapper) EnsureRawFiles(ctx context.Context) ([]string, error) {
	rng := rand.New(rand.NewSource(b.seed))

	type gen struct {
		file string
		name string
		fn   func(*rand.Rand, string) error
	}
	gens := []gen{
		{config.CRMRawFile, SourceCRM, b.writeCRM},
		{config.SurveysRawFile, SourceSurveys, b.writeSurveys},
		{config.AttendanceRawFile, SourceAttendance, b.writeAttendance},
		{config.OutcomesRawFile, SourceOutcomes, b.writeOutcomes},
	}

	var created []string
	for _, g := range gens {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		path := b.paths.GetRawPath(g.file)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		b.logger.InfoContext(ctx, "raw extract missing, generating synthetic substitute",
			slog.String("source", g.name),
			slog.String("path", path))
		if err := g.fn(rng, path); err != nil {
			return created, err
		}
		created = append(created, g.name)
	}
	return created, nil
}

var bootstrapCities = []string{"New York", "NYC", "Chicago", "chicago", "Bk", "Boston", ""}

var bootstrapDates = []string{"2026-01-15", "01/20/2026", "Jan 25 2026", "2026/01/30"}

func (b *Bootstrapper) writeCRM(rng *rand.Rand, path string) error {
	rows := [][]string{{"ParticipantID", "City", "Email", "Phone", "Birthdate"}}
	dobs := []string{"2005-01-10", "01/10/2005", "Jan 10 2005", ""}
	for i := 0; i < 500; i++ {
		// Intentional key duplicates: 500 rows over 260 IDs.
		pid := rng.Intn(260) + 1
		email := fmt.Sprintf("user%d@example.org", pid)
		if rng.Float64() < 0.08 {
			email = ""
		}
		phone := fmt.Sprintf("(%d)-%d-%d", 200+rng.Intn(800), 200+rng.Intn(800), 1000+rng.Intn(9000))
		if rng.Float64() < 0.12 {
			phone = ""
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", pid),
			bootstrapCities[rng.Intn(len(bootstrapCities))],
			email,
			phone,
			dobs[rng.Intn(len(dobs))],
		})
	}
	return writeCSVFile(path, rows)
}

func (b *Bootstrapper) writeSurveys(rng *rand.Rand, path string) error {
	rows := [][]string{{"student_id", "Program", "Date", "Satisfaction", "NPS"}}
	programs := []string{"Program 1", "PRG1", "1", "2", "Program 2", "PRG-003"}
	dates := []string{"2026-02-01", "02/03/2026", "Feb 5 2026", "2026/02/07", ""}
	for i := 0; i < 800; i++ {
		score := fmt.Sprintf("%d", rng.Intn(5)+1)
		if rng.Float64() < 0.05 {
			score = ""
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", rng.Intn(320)+1),
			programs[rng.Intn(len(programs))],
			dates[rng.Intn(len(dates))],
			score,
			fmt.Sprintf("%d", rng.Intn(11)),
		})
	}
	return writeCSVFile(path, rows)
}

func (b *Bootstrapper) writeAttendance(rng *rand.Rand, path string) error {
	rows := [][]string{{"ID", "ProgramID", "Session Date", "Present", "Site"}}
	programs := []string{"1", "2", "3", "PRG-001", "PRG-002", "Program 3"}
	present := []string{"1", "0", "Yes", "No", "Y", "N", ""}
	sites := []string{"New York", "NYC", "Boston", "Chicago", "Bk"}
	for i := 0; i < 1200; i++ {
		rows = append(rows, []string{
			fmt.Sprintf("%d", rng.Intn(320)+1),
			programs[rng.Intn(len(programs))],
			bootstrapDates[rng.Intn(len(bootstrapDates))],
			present[rng.Intn(len(present))],
			sites[rng.Intn(len(sites))],
		})
	}
	return writeExcelFile(path, "attendance", rows)
}

func (b *Bootstrapper) writeOutcomes(rng *rand.Rand, path string) error {
	rows := [][]string{{"Participant Id", "program_id", "outcome_score_pre", "outcome_score_post", "location"}}
	locations := []string{"New York City", "Boston", "Chicago", "NYC", ""}
	for i := 0; i < 400; i++ {
		post := fmt.Sprintf("%.1f", rng.NormFloat64()*10+55)
		if rng.Float64() < 0.05 {
			post = ""
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", rng.Intn(320)+1),
			fmt.Sprintf("%d", rng.Intn(3)+1),
			fmt.Sprintf("%.1f", rng.NormFloat64()*10+50),
			post,
			locations[rng.Intn(len(locations))],
		})
	}
	return writeExcelFile(path, "outcomes", rows)
}

func writeCSVFile(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create bootstrap CSV", err).WithContext("path", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return errors.NewStorageError("failed to write bootstrap CSV row", err).WithContext("path", path)
		}
	}
	return writer.Error()
}

func writeExcelFile(path, sheet string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.NewStorageError("failed to name bootstrap sheet", err)
	}
	for i, row := range rows {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return errors.NewStorageError("failed to address bootstrap cell", err)
			}
			if err := f.SetCellValue(sheet, ref, cell); err != nil {
				return errors.NewStorageError("failed to set bootstrap cell", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.NewStorageError("failed to save bootstrap workbook", err).WithContext("path", path)
	}
	return nil
}

// DefaultReaders returns the readers for the four raw extracts in their
// canonical formats and locations.
func DefaultReaders(paths *config.Paths) []Reader {
	return []Reader{
		NewCSVReader(SourceCRM, paths.GetRawPath(config.CRMRawFile)),
		NewCSVReader(SourceSurveys, paths.GetRawPath(config.SurveysRawFile)),
		NewExcelReader(SourceAttendance, paths.GetRawPath(config.AttendanceRawFile), "attendance"),
		NewExcelReader(SourceOutcomes, paths.GetRawPath(config.OutcomesRawFile), "outcomes"),
	}
}
