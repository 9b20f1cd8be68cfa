package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
	"github.com/KaramelBytes/retention-cli/internal/features"
)

func customers() *dataset.Dataset {
	d := dataset.New("customers", []string{"customer_id", "tenure", "monthly_charges", "total_charges", "churn"})
	d.Append(dataset.Record{"customer_id": "C1", "tenure": int64(12), "monthly_charges": 50.5, "total_charges": 606.0, "churn": "No"})
	d.Append(dataset.Record{"customer_id": "C2", "tenure": int64(0), "monthly_charges": 20.25, "total_charges": nil, "churn": "Yes"})
	d.Append(dataset.Record{"customer_id": "C3", "tenure": int64(3), "monthly_charges": 70.0, "total_charges": " 210.0 ", "churn": "No"})
	return d
}

func TestReadCSVInfersTypes(t *testing.T) {
	in := "\ufeffCustomerID,Tenure,TotalCharges,Note\nC1,12,606.5,\nC2,3, 150.0 ,hi\n"
	d, err := ReadCSV(strings.NewReader(in), "raw", ',')
	require.NoError(t, err)
	assert.Equal(t, []string{"CustomerID", "Tenure", "TotalCharges", "Note"}, d.Columns)
	require.Equal(t, 2, d.Len())
	assert.Equal(t, int64(12), d.Rows[0]["Tenure"])
	assert.Equal(t, 606.5, d.Rows[0]["TotalCharges"])
	assert.Nil(t, d.Rows[0]["Note"])
	assert.Equal(t, " 150.0 ", d.Rows[1]["TotalCharges"])
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), "x", ',')
	assert.True(t, errors.Is(err, dataset.ErrEmptyDataset))

	_, err = ReadCSV(strings.NewReader("a,a\n1,2\n"), "x", ',')
	assert.ErrorContains(t, err, "duplicate column")

	_, err = ReadCSV(strings.NewReader("a,b\n1\n"), "x", ',')
	assert.Error(t, err)
}

func TestCSVStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, "raw_customer_data", customers()))
	n, err := s.Count(ctx, "raw_customer_data")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := s.Load(ctx, "raw_customer_data")
	require.NoError(t, err)
	assert.Equal(t, "raw_customer_data", got.Name)
	assert.Nil(t, got.Rows[1]["total_charges"])
	assert.Equal(t, " 210.0 ", got.Rows[2]["total_charges"])
	assert.Equal(t, 50.5, got.Rows[0]["monthly_charges"])

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"raw_customer_data"}, tables)

	_, err = s.Load(ctx, "missing")
	assert.True(t, errors.Is(err, ErrTableNotFound))
	assert.Error(t, s.Save(ctx, "bad name", customers()))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := Open(ctx, Options{Driver: DriverSQLite, Dir: dir})
	require.NoError(t, err)
	defer st.Close()
	assert.FileExists(t, filepath.Join(dir, SQLiteFile))

	require.NoError(t, st.Save(ctx, "cleaned_customer_data", customers()))
	// saving again replaces the table
	require.NoError(t, st.Save(ctx, "cleaned_customer_data", customers()))

	n, err := st.Count(ctx, "cleaned_customer_data")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := st.Load(ctx, "cleaned_customer_data")
	require.NoError(t, err)
	assert.Equal(t, customers().Columns, got.Columns)
	assert.Equal(t, int64(12), got.Rows[0]["tenure"])
	assert.Equal(t, 20.25, got.Rows[1]["monthly_charges"])
	assert.Nil(t, got.Rows[1]["total_charges"])
	// a column mixing numbers and text is stored as text
	assert.Equal(t, "606", got.Rows[0]["total_charges"])

	q, ok := st.(Querier)
	require.True(t, ok)
	res, err := q.Query(ctx, "SELECT churn, COUNT(*) AS n FROM cleaned_customer_data WHERE tenure >= ? GROUP BY churn ORDER BY churn", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"churn", "n"}, res.Columns)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, "No", res.Rows[0]["churn"])
	assert.Equal(t, int64(2), res.Rows[0]["n"])

	_, err = st.Count(ctx, "nope")
	assert.True(t, errors.Is(err, ErrTableNotFound))
}

func TestXLSXStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewXLSXStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, "final_customer_data", customers()))
	got, err := s.Load(ctx, "final_customer_data")
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())
	assert.Equal(t, customers().Columns, got.Columns)
	assert.Equal(t, "C2", got.Rows[1]["customer_id"])
	assert.Equal(t, int64(12), got.Rows[0]["tenure"])
	assert.Nil(t, got.Rows[1]["total_charges"])

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"final_customer_data"}, tables)
}

func TestReadFileDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	tsv := filepath.Join(dir, "data.tsv")
	require.NoError(t, os.WriteFile(tsv, []byte("a\tb\n1\tx\n"), 0o644))
	d, err := ReadFile(tsv)
	require.NoError(t, err)
	assert.Equal(t, "data", d.Name)
	assert.Equal(t, int64(1), d.Rows[0]["a"])

	_, err = ReadFile(filepath.Join(dir, "data.parquet"))
	assert.ErrorContains(t, err, "unsupported source file type")
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mongo"})
	assert.ErrorContains(t, err, "unsupported store driver")
	_, err = Open(context.Background(), Options{Driver: DriverPostgres})
	assert.ErrorContains(t, err, "requires a dsn")
}

func TestIsNumericType(t *testing.T) {
	for _, name := range []string{"FIXED", "REAL", "NUMBER(38,0)", "NUMERIC", "DECIMAL", "INTEGER", "INT8", "BIGINT", "FLOAT8", "DOUBLE PRECISION", "real"} {
		assert.True(t, isNumericType(name), name)
	}
	for _, name := range []string{"TEXT", "VARCHAR", "BOOLEAN", "TIMESTAMP_NTZ", "INTERVAL", "POINT", ""} {
		assert.False(t, isNumericType(name), name)
	}
}

func TestFromSQLParsesNumericStrings(t *testing.T) {
	assert.Equal(t, int64(5), fromSQL("5", true))
	assert.Equal(t, 70.25, fromSQL("70.25", true))
	assert.Equal(t, int64(5), fromSQL(" 5 ", true))
	assert.Nil(t, fromSQL("", true))
	// text columns keep their strings
	assert.Equal(t, "5", fromSQL("5", false))
	assert.Equal(t, "606", fromSQL("606", false))
	assert.Equal(t, int64(7), fromSQL([]byte("7"), false))
	assert.Equal(t, int64(3), fromSQL(int16(3), true))
}

func TestNumericStringsFromWarehouseReachFeatures(t *testing.T) {
	// NUMBER columns as a warehouse driver delivers them without higher precision
	numeric := map[string]bool{"tenure": true, "monthly_charges": true, "support_calls": true}
	raw := []map[string]any{
		{"customer_id": "A", "tenure": "5", "contract": "Month-to-month", "monthly_charges": "20.5", "payment_method": "Mailed check", "support_calls": "0", "phone_service": "Yes", "internet_service": "DSL"},
		{"customer_id": "B", "tenure": "20", "contract": "One year", "monthly_charges": "50", "payment_method": "Electronic check", "support_calls": "2", "phone_service": "No", "internet_service": "Fiber optic"},
	}
	d := dataset.New("cleaned_customer_data", []string{"customer_id", "tenure", "contract", "monthly_charges", "payment_method", "support_calls", "phone_service", "internet_service"})
	for _, r := range raw {
		rec := dataset.Record{}
		for c, v := range r {
			rec[c] = fromSQL(v, numeric[c])
		}
		d.Append(rec)
	}

	out, rep, err := features.Run(d, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Rows)
	assert.Equal(t, int64(5), out.Rows[0]["tenure"])
	assert.True(t, out.Has(features.ColRetentionScore))
}
