package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
	"github.com/couchcryptid/groundwater-etl/internal/observability"
	"github.com/couchcryptid/groundwater-etl/internal/pipeline"
)

// --- mocks ---

type mockSource struct {
	files map[string][]domain.RawFile
	err   error
}

func (m *mockSource) Regions(_ context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	regions := make([]string, 0, len(m.files))
	for r := range m.files {
		regions = append(regions, r)
	}
	return regions, nil
}

func (m *mockSource) Files(_ context.Context, region string) ([]domain.RawFile, error) {
	return m.files[region], nil
}

type mockAuditor struct {
	mu       sync.Mutex
	verdicts []domain.ValidationVerdict
}

func (m *mockAuditor) Record(v domain.ValidationVerdict) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdicts = append(m.verdicts, v)
}

func (m *mockAuditor) byOutcome(outcome domain.Outcome) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.verdicts {
		if v.Outcome == outcome {
			n++
		}
	}
	return n
}

type mockSink struct {
	mu     sync.Mutex
	matrix *domain.NationalMatrix
	err    error
}

func (m *mockSink) Write(matrix domain.NationalMatrix) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matrix = &matrix
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func file(region, name, content string) domain.RawFile {
	return domain.RawFile{
		Region:     region,
		Name:       name,
		Content:    []byte(content),
		ReportedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

const (
	r1CSV = "Date,State,District,Station_name,level\n" +
		"2000-01-01,R1,D1,S001,10.0\n" +
		"2000-01-02,R1,D1,S001,10.1\n"
	r2CSV = "Date,State,District,Station_name,level\n" +
		"2010-06-15,R2,D1,S001,3.2\n" +
		"2024-03-01,R2,D1,S001,3.4\n"
	emptyCSV   = "Date,State,District,Station_name,level\n"
	noDataCSV  = "Date,State,District,Station_name,level\n2020-01-05,R1,D1,S009,No Data Available\n2020-01-06,R1,D1,S009,No Data Available\n"
	badDateCSV = "Date,State,District,Station_name,level\nwhenever,R1,D1,S010,1.0\nwhoknows,R1,D1,S010,1.1\n"
)

func newPipeline(src pipeline.FileSource, auditor pipeline.AuditRecorder, sink pipeline.MatrixSink) *pipeline.Pipeline {
	return pipeline.New("run-test", src, auditor, sink,
		domain.NewSchemaSet(domain.DefaultSchema(), nil), domain.LastWriteWins,
		testLogger(), observability.NewMetricsForTesting(),
		pipeline.Options{FileWorkers: 4, RegionWorkers: 2})
}

func TestRun_ConsolidatesAcrossRegions(t *testing.T) {
	src := &mockSource{files: map[string][]domain.RawFile{
		"R1": {
			file("R1", "s001.csv", r1CSV),
			file("R1", "empty.csv", emptyCSV),
			file("R1", "nodata.csv", noDataCSV),
		},
		"R2": {
			file("R2", "s001.csv", r2CSV),
		},
	}}
	auditor := &mockAuditor{}
	sink := &mockSink{}
	p := newPipeline(src, auditor, sink)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-test", summary.RunID)
	assert.Equal(t, 4, summary.TotalFiles)
	assert.Equal(t, 2, summary.TotalAccepted)
	assert.Empty(t, summary.SkippedRegions)

	require.NotNil(t, sink.matrix)
	matrix := *sink.matrix
	assert.True(t, matrix.Complete)
	assert.Equal(t, []string{"R1", "R2"}, matrix.Regions)
	assert.Equal(t, 2, matrix.NumStations())

	// Outer join: the date axis spans both regions' coverage.
	dates := matrix.Dates()
	require.Len(t, dates, 4)
	assert.Equal(t, "2000-01-01", domain.FormatDate(dates[0]))
	assert.Equal(t, "2024-03-01", domain.FormatDate(dates[3]))
	_, ok := matrix.Value(dates[0], "R2_D1_S001")
	assert.False(t, ok, "R2 is null outside its coverage")

	// One audit entry per file.
	assert.Equal(t, 2, auditor.byOutcome(domain.Accepted))
	assert.Equal(t, 1, auditor.byOutcome(domain.RejectedEmpty))
	assert.Equal(t, 1, auditor.byOutcome(domain.RejectedPlaceholder))

	require.Len(t, summary.Regions, 2)
	r1 := summary.Regions[0]
	assert.Equal(t, "R1", r1.Region)
	assert.Equal(t, 3, r1.Files)
	assert.Equal(t, 1, r1.Accepted)
	assert.InDelta(t, 1.0/3.0, r1.UsableRatio(), 1e-9)
}

func TestRun_RegionWithNoUsableFilesIsSkipped(t *testing.T) {
	src := &mockSource{files: map[string][]domain.RawFile{
		"R1": {file("R1", "s001.csv", r1CSV)},
		"R9": {
			file("R9", "empty.csv", emptyCSV),
			file("R9", "baddate.csv", badDateCSV),
		},
	}}
	auditor := &mockAuditor{}
	sink := &mockSink{}
	p := newPipeline(src, auditor, sink)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"R9"}, summary.SkippedRegions)
	require.NotNil(t, sink.matrix)
	assert.Equal(t, []string{"R1"}, sink.matrix.Regions)

	// baddate.csv passes validation but fails reshaping: its audit trail
	// shows the acceptance and then the late rejection.
	assert.Equal(t, 2, auditor.byOutcome(domain.Accepted))
	assert.Equal(t, 1, auditor.byOutcome(domain.RejectedOther))
}

func TestRun_DuplicateStationAcrossRegionsIsFatal(t *testing.T) {
	// Both files declare state R1, so the station identifier collides even
	// though the files arrived under different region directories.
	clashCSV := "Date,State,District,Station_name,level\n" +
		"2010-06-15,R1,D1,S001,3.2\n2010-06-16,R1,D1,S001,3.3\n"
	src := &mockSource{files: map[string][]domain.RawFile{
		"R1": {file("R1", "s001.csv", r1CSV)},
		"R2": {file("R2", "clash.csv", clashCSV)},
	}}
	sink := &mockSink{}
	p := newPipeline(src, &mockAuditor{}, sink)

	_, err := p.Run(context.Background())
	var integrity *domain.MergeIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "R1_D1_S001", integrity.Station)
	assert.Nil(t, sink.matrix, "no matrix may be emitted after an integrity failure")
}

func TestRun_SourceFailureIsFatal(t *testing.T) {
	src := &mockSource{err: errors.New("disk on fire")}
	p := newPipeline(src, &mockAuditor{}, &mockSink{})

	_, err := p.Run(context.Background())
	require.ErrorContains(t, err, "disk on fire")
}

func TestRun_SinkFailurePropagates(t *testing.T) {
	src := &mockSource{files: map[string][]domain.RawFile{
		"R1": {file("R1", "s001.csv", r1CSV)},
	}}
	sink := &mockSink{err: errors.New("lake unreachable")}
	p := newPipeline(src, &mockAuditor{}, sink)

	_, err := p.Run(context.Background())
	require.ErrorContains(t, err, "lake unreachable")
}

func TestRun_CancelledContext(t *testing.T) {
	src := &mockSource{files: map[string][]domain.RawFile{
		"R1": {file("R1", "s001.csv", r1CSV)},
	}}
	sink := &mockSink{}
	p := newPipeline(src, &mockAuditor{}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	require.Error(t, err)
	assert.Nil(t, sink.matrix, "a cancelled run must not persist a matrix")
}

func TestCheckReadiness(t *testing.T) {
	src := &mockSource{files: map[string][]domain.RawFile{
		"R1": {file("R1", "s001.csv", r1CSV)},
	}}
	p := newPipeline(src, &mockAuditor{}, &mockSink{})

	require.Error(t, p.CheckReadiness(context.Background()))

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.CheckReadiness(context.Background()))
}
