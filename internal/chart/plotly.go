package chart

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Plotly figure JSON, as produced by plotly.io.to_json. Only the fields the
// terminal surface can use are decoded.
type plotlyFigure struct {
	Data   []plotlyTrace `json:"data"`
	Layout plotlyLayout  `json:"layout"`
}

type plotlyTrace struct {
	Type       string                 `json:"type"`
	Name       string                 `json:"name"`
	Mode       string                 `json:"mode"`
	X          []interface{}          `json:"x"`
	Y          []interface{}          `json:"y"`
	Open       []interface{}          `json:"open"`
	High       []interface{}          `json:"high"`
	Low        []interface{}          `json:"low"`
	Close      []interface{}          `json:"close"`
	Labels     []interface{}          `json:"labels"`
	Values     []interface{}          `json:"values"`
	Line       plotlyLine             `json:"line"`
	Marker     map[string]interface{} `json:"marker"`
	Fill       string                 `json:"fill"`
	FillColor  string                 `json:"fillcolor"`
	Increasing plotlySide             `json:"increasing"`
	Decreasing plotlySide             `json:"decreasing"`
}

type plotlySide struct {
	Line plotlyLine `json:"line"`
}

type plotlyLine struct {
	Color string  `json:"color"`
	Dash  string  `json:"dash"`
	Width float64 `json:"width"`
}

type plotlyLayout struct {
	Title       interface{}        `json:"title"`
	XAxis       plotlyAxis         `json:"xaxis"`
	YAxis       plotlyAxis         `json:"yaxis"`
	Shapes      []plotlyShape      `json:"shapes"`
	Annotations []plotlyAnnotation `json:"annotations"`
}

type plotlyAxis struct {
	Title interface{} `json:"title"`
}

type plotlyShape struct {
	Type string     `json:"type"`
	Y0   float64    `json:"y0"`
	Y1   float64    `json:"y1"`
	Line plotlyLine `json:"line"`
}

type plotlyAnnotation struct {
	Text string  `json:"text"`
	Y    float64 `json:"y"`
}

// FromPlotly builds a Spec from a Plotly figure. A null or empty payload
// yields (nil, nil): the indicator has no chart.
func FromPlotly(raw []byte) (*Spec, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("parsing figure: %w", err)
	}

	var fig plotlyFigure
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       typedArrayHook,
		Result:           &fig,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(generic); err != nil {
		return nil, fmt.Errorf("decoding figure: %w", err)
	}

	spec := &Spec{
		Title:  titleText(fig.Layout.Title),
		XTitle: titleText(fig.Layout.XAxis.Title),
		YTitle: titleText(fig.Layout.YAxis.Title),
	}
	for _, tr := range fig.Data {
		spec.Series = append(spec.Series, traceSeries(tr))
	}
	for _, sh := range fig.Layout.Shapes {
		if sh.Type != "line" || sh.Y0 != sh.Y1 {
			continue
		}
		ref := RefLine{Y: sh.Y0, Color: sh.Line.Color, Dash: sh.Line.Dash != "" && sh.Line.Dash != "solid"}
		for _, a := range fig.Layout.Annotations {
			if math.Abs(a.Y-sh.Y0) < 1e-9 {
				ref.Label = a.Text
				break
			}
		}
		spec.RefLines = append(spec.RefLines, ref)
	}
	return spec, nil
}

func traceSeries(tr plotlyTrace) Series {
	s := Series{
		Name:      tr.Name,
		Color:     tr.Line.Color,
		Dash:      tr.Line.Dash,
		Fill:      tr.Fill,
		FillColor: tr.FillColor,
	}
	if s.Color == "" {
		if c, ok := tr.Marker["color"].(string); ok {
			s.Color = c
		}
	}

	switch strings.ToLower(tr.Type) {
	case "bar":
		s.Kind = Bar
	case "candlestick", "ohlc":
		s.Kind = Candle
		s.Open = floats(tr.Open)
		s.High = floats(tr.High)
		s.Low = floats(tr.Low)
		s.Y = floats(tr.Close)
		s.UpColor = tr.Increasing.Line.Color
		s.DownColor = tr.Decreasing.Line.Color
		setX(&s, tr.X)
		return s
	case "pie":
		s.Kind = Pie
		s.Labels = texts(tr.Labels)
		s.Y = floats(tr.Values)
		s.Labels = padLabels(s.Labels, len(s.Y))
		return s
	default:
		s.Kind = Line
	}
	s.Y = floats(tr.Y)
	setX(&s, tr.X)
	return s
}

// setX stores numeric x values directly and anything else as category labels.
func setX(s *Series, xs []interface{}) {
	if len(xs) == 0 {
		return
	}
	nums := make([]float64, len(xs))
	for i, v := range xs {
		f, ok := toFloat(v)
		if !ok {
			s.Labels = texts(xs)
			return
		}
		nums[i] = f
	}
	s.X = nums
}

func padLabels(labels []string, n int) []string {
	for len(labels) < n {
		labels = append(labels, fmt.Sprintf("#%d", len(labels)+1))
	}
	return labels
}

func titleText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		if s, ok := t["text"].(string); ok {
			return s
		}
	}
	return ""
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// floats converts a loosely typed array; null and non-numeric entries become
// NaN gaps.
func floats(vs []interface{}) []float64 {
	if vs == nil {
		return nil
	}
	out := make([]float64, len(vs))
	for i, v := range vs {
		f, ok := toFloat(v)
		if !ok {
			f = math.NaN()
		}
		out[i] = f
	}
	return out
}

func texts(vs []interface{}) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		switch t := v.(type) {
		case nil:
		case string:
			out[i] = t
		case float64:
			out[i] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(t)
		}
	}
	return out
}

var ifaceSlice = reflect.TypeOf([]interface{}{})

// typedArrayHook expands Plotly's binary array encoding
// ({"dtype": "f8", "bdata": "<base64>"}) into a plain slice.
func typedArrayHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != ifaceSlice || from.Kind() != reflect.Map {
		return data, nil
	}
	m, ok := data.(map[string]interface{})
	if !ok {
		return data, nil
	}
	dtype, _ := m["dtype"].(string)
	bdata, _ := m["bdata"].(string)
	if dtype == "" || bdata == "" {
		return data, nil
	}
	return decodeTypedArray(dtype, bdata)
}

func decodeTypedArray(dtype, b64 string) ([]interface{}, error) {
	buf, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("typed array: %w", err)
	}
	size := map[string]int{"i1": 1, "u1": 1, "i2": 2, "u2": 2, "i4": 4, "u4": 4, "f4": 4, "f8": 8}[dtype]
	if size == 0 {
		return nil, fmt.Errorf("typed array: unsupported dtype %q", dtype)
	}
	if len(buf)%size != 0 {
		return nil, fmt.Errorf("typed array: %d bytes is not a multiple of %d", len(buf), size)
	}
	le := binary.LittleEndian
	out := make([]interface{}, 0, len(buf)/size)
	for off := 0; off < len(buf); off += size {
		b := buf[off : off+size]
		var v float64
		switch dtype {
		case "i1":
			v = float64(int8(b[0]))
		case "u1":
			v = float64(b[0])
		case "i2":
			v = float64(int16(le.Uint16(b)))
		case "u2":
			v = float64(le.Uint16(b))
		case "i4":
			v = float64(int32(le.Uint32(b)))
		case "u4":
			v = float64(le.Uint32(b))
		case "f4":
			v = float64(math.Float32frombits(le.Uint32(b)))
		case "f8":
			v = math.Float64frombits(le.Uint64(b))
		}
		out = append(out, v)
	}
	return out, nil
}
