package loader

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trawlscope/internal/errors"
	"trawlscope/pkg/contracts/domain"
)

func testLoader() *Loader {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const rawHeader = "cruise6,station,stratum,svspp,catchsex,year,est_towdate,season,lat,lon,surftemp,bottemp,depth,biomass,abundance\n"

func TestRawSnapshot(t *testing.T) {
	csv := rawHeader +
		"197503,36,1090,73,1,1975,1975-03-14,SPRING,41.2,-66.9,7.5,5.1,88,12.4,31\n" +
		"197503,37,1090,73,2,1975,1975-03-15,SPRING,41.3,-66.8,NA,,90,0,17\n"
	path := writeFile(t, "survdat_raw.csv", csv)

	records, err := testLoader().RawSnapshot(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "197503", first.Cruise)
	assert.Equal(t, "36", first.Station)
	assert.Equal(t, "73", first.SpeciesCode)
	assert.Equal(t, 1975, first.Year)
	assert.Equal(t, "1975-03-14", first.TowDate)
	assert.InDelta(t, 12.4, first.Biomass, 1e-9)

	second := records[1]
	assert.True(t, domain.IsMissing(second.SurfaceTemp), "NA loads as missing")
	assert.True(t, domain.IsMissing(second.BottomTemp), "empty loads as missing")
	assert.Zero(t, second.Biomass, "a recorded zero stays zero")
}

func TestRawSnapshotMissingColumns(t *testing.T) {
	csv := "cruise6,station,stratum,svspp,catchsex,year,est_towdate,season,lat,lon,surftemp,bottemp,depth\n" +
		"197503,36,1090,73,1,1975,1975-03-14,SPRING,41.2,-66.9,7.5,5.1,88\n"
	path := writeFile(t, "survdat_raw.csv", csv)

	_, err := testLoader().RawSnapshot(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "biomass")
	assert.Contains(t, err.Error(), "abundance")
}

func TestRawSnapshotSkipsUnplaceableRows(t *testing.T) {
	csv := rawHeader +
		"197503,36,1090,73,1,not-a-year,1975-03-14,SPRING,41.2,-66.9,7.5,5.1,88,12.4,31\n" +
		"197503,37,1090,73,1,1975,1975-03-15,SPRING,41.3,-66.8,7.1,5.0,90,3.2,8\n"
	path := writeFile(t, "survdat_raw.csv", csv)

	records, err := testLoader().RawSnapshot(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "37", records[0].Station)
}

func TestRawSnapshotNotFound(t *testing.T) {
	_, err := testLoader().RawSnapshot(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorIs(t, err, apperrors.ErrSnapshotNotFound)
}

func TestRawSnapshotBOMHeader(t *testing.T) {
	csv := "\uFEFF" + rawHeader +
		"197503,36,1090,73,1,1975,1975-03-14,SPRING,41.2,-66.9,7.5,5.1,88,12.4,31\n"
	path := writeFile(t, "survdat_raw.csv", csv)

	records, err := testLoader().RawSnapshot(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "197503", records[0].Cruise)
}

func TestSpeciesNames(t *testing.T) {
	csv := "svspp,comname,sciname\n" +
		"73,ATLANTIC COD,GADUS MORHUA\n" +
		",NO CODE,IGNORED\n" +
		"75,POLLOCK,POLLACHIUS VIRENS\n"
	path := writeFile(t, "species_codes.csv", csv)

	names, err := testLoader().SpeciesNames(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, names, 2, "rows without a code are dropped")
	assert.Equal(t, "73", names[0].Code)
	assert.Equal(t, "ATLANTIC COD", names[0].CommonName)
}

func TestSpeciesNamesMissingColumns(t *testing.T) {
	path := writeFile(t, "species_codes.csv", "svspp,comname\n73,ATLANTIC COD\n")

	_, err := testLoader().SpeciesNames(context.Background(), path)
	assert.ErrorIs(t, err, apperrors.ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "sciname")
}

func TestCleanSnapshot(t *testing.T) {
	csv := "id,svspp,comname,sciname,year,month,day,season,strat_num,lat,lon,surftemp,bottemp,depth,est_towdate,total_biomass_kg\n" +
		"1975030361090,073,atlantic cod,gadus morhua,1975,3,14,Spring,09,41.2,-66.9,7.5,,88,1975-03-14,15.9\n" +
		"1975030371090,073,atlantic cod,gadus morhua,1975,3,15,Spring,09,41.3,-66.8,7.1,5.0,90,1975-03-15,\n"
	path := writeFile(t, "survdat_clean.csv", csv)

	records, err := testLoader().CleanSnapshot(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 1, "rows without a biomass total are skipped")

	r := records[0]
	assert.Equal(t, "1975030361090", r.TowID)
	assert.Equal(t, "073", r.SpeciesCode)
	assert.Equal(t, 3, r.Month)
	assert.Equal(t, "09", r.StratNum)
	assert.True(t, domain.IsMissing(r.BottomTemp))
	assert.InDelta(t, 15.9, r.TotalBiomassKg, 1e-9)
}

func TestParseFloatCell(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    float64
		missing bool
		wantErr bool
	}{
		{name: "number", in: "12.4", want: 12.4},
		{name: "empty is missing", in: "", missing: true},
		{name: "NA is missing", in: "NA", missing: true},
		{name: "lowercase na", in: "na", missing: true},
		{name: "NaN literal", in: "NaN", missing: true},
		{name: "garbage errors", in: "12,4", missing: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFloatCell(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.missing {
				assert.True(t, domain.IsMissing(got))
			} else {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}
