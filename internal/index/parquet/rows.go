package parquet

import (
	"math"

	"github.com/xtxerr/seisfetch/config"
	"github.com/xtxerr/seisfetch/internal/filter"
	"github.com/xtxerr/seisfetch/internal/index"
	"github.com/xtxerr/seisfetch/internal/query"
)

// StationRow represents a station item in Parquet format.
// Absent attributes are stored as NULL.
type StationRow struct {
	StationID string   `parquet:"stationID,zstd"`
	Network   *string  `parquet:"NET,optional,zstd"`
	Station   *string  `parquet:"STA,optional,zstd"`
	Location  *string  `parquet:"LOC,optional,zstd"`
	Channel   *string  `parquet:"CHAN,optional,zstd"`
	Latitude  *float64 `parquet:"LAT,optional"`
	Longitude *float64 `parquet:"LON,optional"`
	StartTime *string  `parquet:"STARTTIME,optional,zstd"`
	EndTime   *string  `parquet:"ENDTIME,optional,zstd"`
}

// FileRow represents a file item in Parquet format.
type FileRow struct {
	StationID string `parquet:"stationID,zstd"`
	Date      string `parquet:"DATE,zstd"`
	Path      string `parquet:"FILEPATH,zstd"`
}

// StationToRow converts a Station to a StationRow.
func StationToRow(st *index.Station) StationRow {
	return StationRow{
		StationID: st.ID,
		Network:   textAttr(st.Attrs, config.AttrNetwork),
		Station:   textAttr(st.Attrs, config.AttrStation),
		Location:  textAttr(st.Attrs, config.AttrLocation),
		Channel:   textAttr(st.Attrs, config.AttrChannel),
		Latitude:  numberAttr(st.Attrs, config.AttrLatitude),
		Longitude: numberAttr(st.Attrs, config.AttrLongitude),
		StartTime: textAttr(st.Attrs, config.AttrStartTime),
		EndTime:   textAttr(st.Attrs, config.AttrEndTime),
	}
}

// RowToStation converts a StationRow to a Station. NaN and infinite
// coordinates are treated as absent.
func RowToStation(r *StationRow) index.Station {
	attrs := filter.AttributeMap{
		config.AttrStationID: query.String(r.StationID),
	}

	setText := func(name string, v *string) {
		if v != nil {
			attrs[name] = query.String(*v)
		}
	}
	setNumber := func(name string, v *float64) {
		if v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
			attrs[name] = query.Number(*v)
		}
	}

	setText(config.AttrNetwork, r.Network)
	setText(config.AttrStation, r.Station)
	setText(config.AttrLocation, r.Location)
	setText(config.AttrChannel, r.Channel)
	setNumber(config.AttrLatitude, r.Latitude)
	setNumber(config.AttrLongitude, r.Longitude)
	setText(config.AttrStartTime, r.StartTime)
	setText(config.AttrEndTime, r.EndTime)

	return index.Station{ID: r.StationID, Attrs: attrs}
}

// FileToRow converts a File to a FileRow.
func FileToRow(f *index.File) FileRow {
	return FileRow{StationID: f.StationID, Date: f.Date, Path: f.Path}
}

// RowToFile converts a FileRow to a File.
func RowToFile(r *FileRow) index.File {
	return index.File{StationID: r.StationID, Date: r.Date, Path: r.Path}
}

func textAttr(attrs filter.AttributeMap, name string) *string {
	v, ok := attrs[name]
	if !ok {
		return nil
	}
	s := v.Text()
	return &s
}

func numberAttr(attrs filter.AttributeMap, name string) *float64 {
	v, ok := attrs[name]
	if !ok || !v.IsNumber() {
		return nil
	}
	f := v.Num.InexactFloat64()
	return &f
}
