package cmd

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/mapframe/pkg/frame"
)

const testStyle = `<?xml version="1.0" encoding="utf-8"?>
<Map srs="+proj=longlat +datum=WGS84" background-color="#f2efe9">
  <Layer name="landcover"/>
  <Layer name="contours" status="off"/>
  <Layer name="labels"/>
</Map>
`

func TestParsePair(t *testing.T) {
	a, b, err := parsePair("size", "210, 297")
	require.NoError(t, err)
	assert.Equal(t, 210.0, a)
	assert.Equal(t, 297.0, b)

	a, b, err = parsePair("center", "-122.4,37.8")
	require.NoError(t, err)
	assert.Equal(t, -122.4, a)
	assert.Equal(t, 37.8, b)

	for _, s := range []string{"", "210", "210,297,1", "a,b"} {
		_, _, err := parsePair("size", s)
		assert.Error(t, err, s)
	}
}

func TestRenderRequestFromConfig(t *testing.T) {
	for key, value := range map[string]interface{}{
		"ppi":         300.0,
		"scale":       10000.0,
		"size":        "210,297",
		"center":      "7.6261,51.9607",
		"add-layers":  "grid, contours",
		"hide-layers": "labels",
		"format":      "",
	} {
		viper.Set(key, value)
	}
	t.Cleanup(func() {
		for _, key := range []string{"ppi", "scale", "size", "center", "add-layers", "hide-layers", "format"} {
			viper.Set(key, nil)
		}
	})

	req, err := renderRequestFromConfig("map.svg")
	require.NoError(t, err)

	assert.Equal(t, 7.6261, req.Center.X)
	assert.Equal(t, 51.9607, req.Center.Y)
	assert.Equal(t, 210.0, req.WidthMM)
	assert.Equal(t, 297.0, req.HeightMM)
	assert.Equal(t, 300.0, req.PPI)
	assert.Equal(t, 10000.0, req.ScaleDenominator)
	assert.Equal(t, []string{"grid", "contours"}, req.Enable)
	assert.Equal(t, []string{"labels"}, req.Disable)
	assert.Equal(t, frame.Format{Name: "svg", Vector: true}, req.Format)

	viper.Set("format", "jpeg")
	req, err = renderRequestFromConfig("map.svg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", req.Format.Name)

	viper.Set("format", "bmp")
	_, err = renderRequestFromConfig("map.svg")
	assert.Error(t, err)
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	style := filepath.Join(dir, "style.xml")
	require.NoError(t, os.WriteFile(style, []byte(testStyle), 0644))
	out := filepath.Join(dir, "map.png")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"--ppi", "90.7",
		"--scale", "5000",
		"--size", "100,50",
		"--center", "7.6261,51.9607",
		"--hide-layers", "labels",
		"--debug",
		"--worldfile",
		style, out,
	})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	report := stdout.String()
	assert.Contains(t, report, "scale_factor=1\n")
	assert.Contains(t, report, "size=357,179\n")
	assert.Contains(t, report, "layers=landcover\n")
	assert.Contains(t, stderr.String(), "==Raster Size: 357x179")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 357, img.Bounds().Dx())
	assert.Equal(t, 179, img.Bounds().Dy())

	_, err = os.Stat(filepath.Join(dir, "map.pgw"))
	assert.NoError(t, err)
}

func TestInfoCommand(t *testing.T) {
	dir := t.TempDir()
	style := filepath.Join(dir, "style.xml")
	require.NoError(t, os.WriteFile(style, []byte(testStyle), 0644))
	out := filepath.Join(dir, "map.svg")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"--ppi", "300",
		"--scale", "10000",
		"--size", "210,297",
		"--center", "0,0",
		"--hide-layers", "",
		"--debug=false",
		"--worldfile=false",
		"--info",
		style, out,
	})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, stdout.String(), "size=2480,3508\n")
	assert.Contains(t, stdout.String(), "layers=landcover,labels\n")

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "--info must not render")
}

func TestJoinPairArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"--size=297.000000,420.000000", "--ppi", "300", "--center=-70.650000,-33.450000", "style.xml", "-"},
		joinPairArgs([]string{"--size", "297.000000", "420.000000", "--ppi", "300", "--center", "-70.650000", "-33.450000", "style.xml", "-"}))

	// the comma form and non-numeric neighbours are left alone
	assert.Equal(t,
		[]string{"--size", "297,420", "style.xml", "map.png"},
		joinPairArgs([]string{"--size", "297,420", "style.xml", "map.png"}))
	assert.Equal(t,
		[]string{"--", "--size", "1", "2"},
		joinPairArgs([]string{"--", "--size", "1", "2"}))
}

func TestInfoCommandSeparateValues(t *testing.T) {
	dir := t.TempDir()
	style := filepath.Join(dir, "style.xml")
	require.NoError(t, os.WriteFile(style, []byte(testStyle), 0644))
	out := filepath.Join(dir, "map.png")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	// the argument shape of the print build service
	rootCmd.SetArgs(joinPairArgs([]string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"--debug=false",
		"--worldfile=false",
		"--hide-layers", "",
		"--info",
		"--scale", "10000",
		"--size", "210.000000", "297.000000",
		"--ppi", "300",
		"--center", "7.627900", "51.950600",
		style, out,
	}))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stdout.String(), "size=2480,3508\n")
}
