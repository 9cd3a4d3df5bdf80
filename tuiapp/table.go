package tuiapp

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/micutio/trackspottr/internal"
	"github.com/micutio/trackspottr/internal/track"
)

// Error types

var errColumnMismatch = errors.New("number of columns does not match number of format columns")

// Automated Table Formatting

type tableColumnSizingOption int

const (
	// fixed column width, regardless of table width.
	fixed tableColumnSizingOption = iota
	// relative column with, given as percentage of the total table width.
	relative
	// fill columns receive any remaining table space, evenly distributed.
	fill
)

type columnFormat struct {
	option tableColumnSizingOption
	value  float32
}

type tableFormat struct {
	columnSizes        []columnFormat
	fixedWidth         int     // fixedWidth is the total space taken up by all fixed-width columns.
	fillWidthCount     int     // fillWidthCount indicates how many columns have fill width.
	totalRelativeWidth float32 // how much width is taken by relative columns.
}

func newTableFormat(items ...columnFormat) tableFormat {
	var totalRelativeWidth float32
	fixedWidth := 0
	fillWidthCount := 0

	for _, item := range items {
		switch item.option {
		case relative:
			totalRelativeWidth += item.value
			continue
		case fixed:
			fixedWidth += int(item.value)
			continue
		case fill:
			fillWidthCount++
			continue
		}
	}

	return tableFormat{
		columnSizes:        items,
		fixedWidth:         fixedWidth,
		fillWidthCount:     fillWidthCount,
		totalRelativeWidth: totalRelativeWidth,
	}
}

// Integrated Formatted Table Type

type autoFormatTable struct {
	table  table.Model
	format tableFormat
}

// resize distributes newWidth over the columns. Cell padding is not accounted for.
func (aft *autoFormatTable) resize(newWidth int) error {
	columnCount := len(aft.table.Columns())
	if columnCount != len(aft.format.columnSizes) {
		return fmt.Errorf(
			"table.resize: %w -> %d in table, %d in tableFormat",
			errColumnMismatch,
			columnCount,
			len(aft.format.columnSizes))
	}

	columns := aft.table.Columns()
	adjustedWidth := newWidth - 1 - columnCount
	aft.table.SetWidth(adjustedWidth)
	totalRelativeWidth := int(float32(adjustedWidth) * aft.format.totalRelativeWidth)
	totalFillWidth := adjustedWidth - totalRelativeWidth - aft.format.fixedWidth
	fillPerColumn := 0
	if aft.format.fillWidthCount > 0 {
		fillPerColumn = int(float32(totalFillWidth) / float32(aft.format.fillWidthCount))
	}

	for idx := range columnCount {
		format := aft.format.columnSizes[idx]
		switch format.option {
		case fixed:
			columns[idx].Width = int(format.value)
		case relative:
			columns[idx].Width = int(format.value * float32(newWidth))
		case fill:
			columns[idx].Width = max(fillPerColumn, 0)
		}
	}
	aft.table.SetColumns(columns)

	return nil
}

func (aft *autoFormatTable) SetHeight(height int) {
	aft.table.SetHeight(height)
}


// Columns of the track table, in order.
const (
	colID = iota
	colName
	colType
	colDst
	colBrg
	colAlt
	colSpd
	colHdg
	colState
	colSymbol
)

func newTrackTable(tableStyle table.Styles) autoFormatTable {
	idLen := 10
	typeLen := 17
	numLen := 7
	stateLen := 11
	symbolLen := 10
	initialTableHeight := 5
	format := newTableFormat(
		columnFormat{fixed, float32(idLen)},
		columnFormat{fill, 0.0},
		columnFormat{fixed, float32(typeLen)},
		columnFormat{fixed, float32(numLen)},
		columnFormat{fixed, float32(numLen - 2)},
		columnFormat{fixed, float32(numLen)},
		columnFormat{fixed, float32(numLen - 2)},
		columnFormat{fixed, float32(numLen - 2)},
		columnFormat{fixed, float32(stateLen)},
		columnFormat{fixed, float32(symbolLen)},
	)

	trackTbl := table.New(
		table.WithColumns(
			[]table.Column{
				{Title: "ID", Width: idLen},
				{Title: "NAME", Width: 0},
				{Title: "TYPE", Width: typeLen},
				{Title: "DST", Width: numLen},
				{Title: "BRG", Width: numLen - 2},
				{Title: "ALT", Width: numLen},
				{Title: "SPD", Width: numLen - 2},
				{Title: "HDG", Width: numLen - 2},
				{Title: "STATE", Width: stateLen},
				{Title: "SYMBOL", Width: symbolLen},
			},
		),
		table.WithRows([]table.Row{}),
		table.WithFocused(true),
		table.WithHeight(initialTableHeight),
		table.WithStyles(tableStyle),
	)

	return autoFormatTable{
		table:  trackTbl,
		format: format,
	}
}

func newTypeCountTable(tableStyle table.Styles) autoFormatTable {
	countLen := 6
	typeNameLen := 17
	initialTableHeight := 5
	format := newTableFormat(
		columnFormat{fixed, float32(countLen)},
		columnFormat{fill, float32(typeNameLen)},
	)

	typeCountTbl := table.New(
		table.WithColumns(
			[]table.Column{
				{Title: "Count", Width: countLen},
				{Title: "Type", Width: typeNameLen},
			},
		),
		table.WithRows([]table.Row{}),
		table.WithFocused(false),
		table.WithHeight(initialTableHeight),
		table.WithStyles(tableStyle),
	)

	return autoFormatTable{
		table:  typeCountTbl,
		format: format,
	}
}

// displayToRow renders one resolved track. Range and bearing are measured from home to the shown,
// possibly dead-reckoned, position; a trailing '*' marks a dead-reckoned range. The name is only
// shown when the track is labelled at the current zoom.
func displayToRow(d *track.Display, home track.Position) table.Row {
	dst, brg := "", ""
	if d.Position != nil {
		dist, bearing := track.RangeAndBearing(home, *d.Position)
		dst = fmt.Sprintf("%5.1f", dist)
		if d.DeadReckoned {
			dst += "*"
		}
		brg = fmt.Sprintf("%03.0f", bearing)
	}

	name := ""
	if d.ShowLabel {
		name = d.Name
	}

	alt, spd, hdg := "", "", ""
	if d.Altitude != nil {
		alt = fmt.Sprintf("%5.0f", *d.Altitude)
	}
	if d.Speed != nil {
		spd = fmt.Sprintf("%3.0f", *d.Speed)
	}
	if d.Heading != nil {
		hdg = fmt.Sprintf("%03.0f", *d.Heading)
	}

	return table.Row{d.ID, name, d.TypeName, dst, brg, alt, spd, hdg, d.StateName, d.SymbolCode}
}

func propertyCountToRow(propCount internal.PropertyCountTuple) table.Row {
	return table.Row{fmt.Sprintf("%5d", propCount.Count), propCount.Property}
}
