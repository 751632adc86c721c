// Package dwarfsym resolves code addresses to source locations using the
// DWARF line tables of ELF, Mach-O and PE binaries.
//
// Opening a binary decodes every line program into one sorted table; lookups
// are binary searches over it. Locations are formatted file:line:col, or
// file:line when the producer emits no columns, or file alone when the row
// has no line.
package dwarfsym

import (
	"bytes"
	"context"
	"debug/dwarf"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/addr2line-web/addr2line/internal/core"
)

// Options tunes how locations are rendered.
type Options struct {
	// Functions prefixes each location with the enclosing function name,
	// as "name at file:line".
	Functions bool
}

// Resolver implements core.Resolver over DWARF debug info.
type Resolver struct {
	opts Options
}

// New creates a resolver.
func New(opts Options) *Resolver {
	return &Resolver{opts: opts}
}

// Open parses binary and builds its lookup tables.
func (r *Resolver) Open(ctx context.Context, binary []byte) (core.ResolverHandle, error) {
	start := time.Now()

	data, format, err := loadDWARF(binary)
	if err != nil {
		return nil, err
	}

	h := &handle{opts: r.opts}
	if h.lines, err = buildLineTable(ctx, data); err != nil {
		return nil, err
	}
	if r.opts.Functions {
		if h.funcs, err = buildFuncTable(ctx, data); err != nil {
			return nil, err
		}
	}

	slog.Debug("binary opened",
		"format", format,
		"line_rows", len(h.lines),
		"functions", len(h.funcs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return h, nil
}

// loadDWARF detects the object format and extracts its debug info.
func loadDWARF(binary []byte) (*dwarf.Data, string, error) {
	if len(binary) == 0 {
		return nil, "", &core.OpenError{Reason: "empty binary"}
	}
	r := bytes.NewReader(binary)

	if f, err := elf.NewFile(r); err == nil {
		d, err := f.DWARF()
		if err != nil {
			return nil, "elf", &core.OpenError{Reason: "no DWARF debug info in ELF file", Err: err}
		}
		return d, "elf", nil
	}
	if f, err := macho.NewFile(r); err == nil {
		d, err := f.DWARF()
		if err != nil {
			return nil, "macho", &core.OpenError{Reason: "no DWARF debug info in Mach-O file", Err: err}
		}
		return d, "macho", nil
	}
	if f, err := pe.NewFile(r); err == nil {
		d, err := f.DWARF()
		if err != nil {
			return nil, "pe", &core.OpenError{Reason: "no DWARF debug info in PE file", Err: err}
		}
		return d, "pe", nil
	}

	return nil, "", &core.OpenError{Reason: "not an ELF, Mach-O or PE object file"}
}

// lineRow is one row of a line program. end marks the first address after
// a sequence.
type lineRow struct {
	addr uint64
	file string
	line int
	col  int
	end  bool
}

func buildLineTable(ctx context.Context, d *dwarf.Data) ([]lineRow, error) {
	var rows []lineRow

	reader := d.Reader()
	for {
		entry, err := reader.Next()
		if err != nil {
			return nil, &core.OpenError{Reason: "corrupt debug info", Err: err}
		}
		if entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit {
			reader.SkipChildren()
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lr, err := d.LineReader(entry)
		if err != nil {
			return nil, &core.OpenError{Reason: "corrupt line table", Err: err}
		}
		reader.SkipChildren()
		if lr == nil {
			continue
		}

		var le dwarf.LineEntry
		for {
			if err := lr.Next(&le); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, &core.OpenError{Reason: "corrupt line table", Err: err}
			}
			row := lineRow{addr: le.Address, line: le.Line, col: le.Column, end: le.EndSequence}
			if le.File != nil {
				row.file = le.File.Name
			}
			rows = append(rows, row)
		}
	}

	// Stable so an end-of-sequence row stays before a row starting the next
	// sequence at the same address.
	slices.SortStableFunc(rows, func(a, b lineRow) int {
		switch {
		case a.addr < b.addr:
			return -1
		case a.addr > b.addr:
			return 1
		case a.end && !b.end:
			return -1
		case !a.end && b.end:
			return 1
		default:
			return 0
		}
	})
	return rows, nil
}

// funcRange is the address range [low, high) of one function.
type funcRange struct {
	low, high uint64
	name      string
}

func buildFuncTable(ctx context.Context, d *dwarf.Data) ([]funcRange, error) {
	var funcs []funcRange

	reader := d.Reader()
	for {
		entry, err := reader.Next()
		if err != nil {
			return nil, &core.OpenError{Reason: "corrupt debug info", Err: err}
		}
		if entry == nil {
			break
		}
		if entry.Tag == dwarf.TagCompileUnit {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}
		if entry.Tag != dwarf.TagSubprogram {
			continue
		}

		name, _ := entry.Val(dwarf.AttrName).(string)
		if name == "" {
			continue
		}
		ranges, err := d.Ranges(entry)
		if err != nil {
			continue
		}
		for _, rg := range ranges {
			if rg[0] < rg[1] {
				funcs = append(funcs, funcRange{low: rg[0], high: rg[1], name: name})
			}
		}
	}

	slices.SortFunc(funcs, func(a, b funcRange) int {
		switch {
		case a.low < b.low:
			return -1
		case a.low > b.low:
			return 1
		default:
			return 0
		}
	})
	return funcs, nil
}

// handle is an opened binary. Resolve may be called concurrently.
type handle struct {
	opts Options

	mu     sync.RWMutex
	lines  []lineRow
	funcs  []funcRange
	closed bool
}

// Resolve implements core.AddressResolver.
func (h *handle) Resolve(ctx context.Context, addr uint64) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return "", false, core.ErrHandleClosed
	}

	row, ok := lookupLine(h.lines, addr)
	if !ok {
		return "", false, nil
	}
	loc := formatLocation(row)

	if h.opts.Functions {
		if name, ok := lookupFunc(h.funcs, addr); ok {
			loc = name + " at " + loc
		}
	}
	return loc, true, nil
}

// Close releases the tables.
func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return core.ErrHandleClosed
	}
	h.closed = true
	h.lines = nil
	h.funcs = nil
	return nil
}

// lookupLine finds the row covering addr: the last row at or below addr,
// provided it does not end a sequence and names a file.
func lookupLine(rows []lineRow, addr uint64) (lineRow, bool) {
	i, found := slices.BinarySearchFunc(rows, addr, func(r lineRow, a uint64) int {
		switch {
		case r.addr < a:
			return -1
		case r.addr > a:
			return 1
		default:
			return 0
		}
	})
	if found {
		// Several rows can share an address; the last one describes it.
		for i+1 < len(rows) && rows[i+1].addr == addr {
			i++
		}
	} else {
		i--
	}

	if i < 0 || rows[i].end || rows[i].file == "" {
		return lineRow{}, false
	}
	return rows[i], true
}

func lookupFunc(funcs []funcRange, addr uint64) (string, bool) {
	i, _ := slices.BinarySearchFunc(funcs, addr, func(f funcRange, a uint64) int {
		if f.low <= a {
			return -1
		}
		return 1
	})
	// funcs[i-1] is the last function starting at or below addr.
	if i == 0 || addr >= funcs[i-1].high {
		return "", false
	}
	return funcs[i-1].name, true
}

func formatLocation(r lineRow) string {
	switch {
	case r.line > 0 && r.col > 0:
		return r.file + ":" + strconv.Itoa(r.line) + ":" + strconv.Itoa(r.col)
	case r.line > 0:
		return r.file + ":" + strconv.Itoa(r.line)
	default:
		return r.file
	}
}
