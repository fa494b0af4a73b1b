package yahb

import (
	"github.com/hhkbp2/testify/require"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProperties(t *testing.T) {
	k := "key"
	v := "value"
	p := NewProperties()
	p.Add(k, v)
	x := p.Get(k)
	require.Equal(t, v, x)
	x = p.GetDefault(k, "other")
	require.Equal(t, v, x)
	k1 := "a"
	v1 := "b"
	p2 := map[string]string{k1: v1}
	p.Merge(p2)
	z := p.Get(k1)
	require.Equal(t, v1, z)
}

func TestTypedProperties(t *testing.T) {
	p := NewProperties()
	p.Add("i", "42")
	p.Add("f", "0.5")
	p.Add("b", "true")
	p.Add("bad", "x")
	i, err := p.GetInt64("i", "0")
	require.Nil(t, err)
	require.Equal(t, int64(42), i)
	i, err = p.GetInt64("missing", "7")
	require.Nil(t, err)
	require.Equal(t, int64(7), i)
	f, err := p.GetFloat64("f", "0")
	require.Nil(t, err)
	require.Equal(t, 0.5, f)
	b, err := p.GetBool("b", "false")
	require.Nil(t, err)
	require.True(t, b)
	_, err = p.GetInt64("bad", "0")
	require.NotNil(t, err)
	d, err := p.GetSeconds("f", "0")
	require.Nil(t, err)
	require.Equal(t, 500*time.Millisecond, d)
}

func TestLoadProperties(t *testing.T) {
	dir, err := ioutil.TempDir("", "yahb")
	require.Nil(t, err)
	defer os.RemoveAll(dir)

	text := filepath.Join(dir, "workload.properties")
	err = ioutil.WriteFile(text, []byte("# comment\nwarehouses = 4\n\noltp.mix=NewOrder=1\n"), 0644)
	require.Nil(t, err)
	p, err := LoadProperties(text)
	require.Nil(t, err)
	require.Equal(t, "4", p.Get("warehouses"))
	require.Equal(t, "NewOrder=1", p.Get("oltp.mix"))

	y := filepath.Join(dir, "workload.yaml")
	err = ioutil.WriteFile(y, []byte("warehouses: 8\ncalibrate: true\n"), 0644)
	require.Nil(t, err)
	p, err = LoadProperties(y)
	require.Nil(t, err)
	require.Equal(t, "8", p.Get("warehouses"))
	require.Equal(t, "true", p.Get("calibrate"))

	bad := filepath.Join(dir, "bad.properties")
	err = ioutil.WriteFile(bad, []byte("novalue\n"), 0644)
	require.Nil(t, err)
	_, err = LoadProperties(bad)
	require.NotNil(t, err)
}

func TestToTime(t *testing.T) {
	millisecond := int64(12345)
	nanosecond := MillisecondToNanosecond(millisecond)
	require.Equal(t, millisecond*1000*1000, nanosecond)
	second := MillisecondToSecond(millisecond)
	require.Equal(t, millisecond/1000, second)
	v := NanosecondToMicrosecond(nanosecond)
	require.Equal(t, nanosecond/1000, v)
	v = NanosecondToMillisecond(nanosecond)
	require.Equal(t, nanosecond/1000/1000, v)
	require.Equal(t, millisecond, MillisToTime(millisecond).UnixNano()/1000/1000)
	require.Equal(t, time.UTC, MillisToTime(millisecond).Location())
}
