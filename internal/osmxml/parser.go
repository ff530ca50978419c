package osmxml

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/wegman-software/osm3d-go/internal/logger"
	"github.com/wegman-software/osm3d-go/internal/middle"
)

// rootElement is the container every OSM XML document must start with
const rootElement = "osm"

// Progress receives the stream position once per top-level element
type Progress interface {
	Update(current, total int64)
	Close()
}

// Result holds the parsed tables and the outcome of the parse
type Result struct {
	Tables *middle.Tables

	// Valid is false when the root element is not <osm>; Tables are empty
	Valid bool
	// Aborted is true when the context was cancelled mid-parse; Tables are empty
	Aborted bool
}

// Stats tracks parsing statistics
type Stats struct {
	Nodes     int64
	Ways      int64
	Relations int64
	Skipped   int64 // entities or children dropped for malformed content
	BytesRead int64
}

// Parser parses OSM XML documents into raw entity tables
type Parser struct {
	opts     Options
	progress Progress
	stats    Stats
}

// NewParser creates a parser. progress may be nil.
func NewParser(opts Options, progress Progress) *Parser {
	return &Parser{opts: opts, progress: progress}
}

// Stats returns parsing statistics
func (p *Parser) Stats() Stats {
	return p.stats
}

// ParseFile parses an OSM XML file.
// Supports both plain XML and gzip-compressed files
func (p *Parser) ParseFile(ctx context.Context, filename string) (*Result, error) {
	f, err := os.Open(filename)
	if err != nil {
		p.closeProgress()
		return nil, fmt.Errorf("failed to open OSM file: %w", err)
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	if !strings.HasSuffix(filename, ".gz") {
		return p.parse(ctx, f, size, nil)
	}

	// Progress of compressed input is measured in bytes of the file on disk
	counter := &countingReader{r: f}
	gzReader, err := gzip.NewReader(counter)
	if err != nil {
		p.closeProgress()
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	return p.parse(ctx, gzReader, size, counter.Position)
}

// Parse parses OSM XML from a reader. size is the total stream length used
// for progress reporting, or 0 if unknown.
func (p *Parser) Parse(ctx context.Context, r io.Reader, size int64) (*Result, error) {
	return p.parse(ctx, r, size, nil)
}

func (p *Parser) closeProgress() {
	if p.progress != nil {
		p.progress.Close()
	}
}

// parse performs the actual XML parsing. position reports the stream
// offset for progress; nil selects the decoder's input offset.
func (p *Parser) parse(ctx context.Context, reader io.Reader, size int64, position func() int64) (*Result, error) {
	log := logger.Get()
	p.stats = Stats{}
	defer p.closeProgress()

	decoder := xml.NewDecoder(reader)
	if position == nil {
		position = decoder.InputOffset
	}
	result := &Result{Tables: middle.NewTables()}

	root, err := firstElement(decoder)
	if err != nil {
		return nil, err
	}
	if root == nil || root.Name.Local != rootElement {
		log.Warn("OSM file is not valid, no <osm> element found")
		return result, nil
	}
	result.Valid = true

	tables := result.Tables
	boundsDone := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("XML parse error: %w", err)
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			if ee, ok := token.(xml.EndElement); ok && ee.Name.Local == rootElement {
				break
			}
			continue
		}

		if ctx.Err() != nil {
			log.Info("Loading aborted")
			tables.Reset()
			result.Aborted = true
			p.stats.BytesRead = position()
			return result, nil
		}

		switch se.Name.Local {
		case "bounds":
			// Only a single <bounds> ahead of all entities is honoured
			if !boundsDone {
				tables.Bounds = parseBounds(se)
			}
			boundsDone = true
			err = decoder.Skip()
		case "node":
			boundsDone = true
			err = p.parseNode(decoder, se, tables)
		case "way":
			boundsDone = true
			err = p.parseWay(decoder, se, tables)
		case "relation":
			boundsDone = true
			err = p.parseRelation(decoder, se, tables)
		default:
			err = decoder.Skip()
		}
		if err != nil {
			return nil, fmt.Errorf("XML parse error: %w", err)
		}

		if p.progress != nil {
			p.progress.Update(position(), size)
		}
	}

	p.stats.BytesRead = position()
	log.Debug("Parsed OSM document",
		zap.String("bounds", middle.FormatBounds(tables.Bounds)),
		zap.Int64("nodes", p.stats.Nodes),
		zap.Int64("ways", p.stats.Ways),
		zap.Int64("relations", p.stats.Relations),
		zap.Int64("skipped", p.stats.Skipped),
	)

	return result, nil
}

// firstElement returns the root start element, or nil for an empty document
func firstElement(decoder *xml.Decoder) (*xml.StartElement, error) {
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("XML parse error: %w", err)
		}
		if se, ok := token.(xml.StartElement); ok {
			return &se, nil
		}
	}
}

func parseBounds(se xml.StartElement) osm.Bounds {
	var b osm.Bounds
	for _, attr := range se.Attr {
		v, _ := strconv.ParseFloat(attr.Value, 64)
		switch attr.Name.Local {
		case "minlat":
			b.MinLat = v
		case "minlon":
			b.MinLon = v
		case "maxlat":
			b.MaxLat = v
		case "maxlon":
			b.MaxLon = v
		}
	}
	return b
}

// parseNode parses a node element
func (p *Parser) parseNode(decoder *xml.Decoder, start xml.StartElement, tables *middle.Tables) error {
	if !p.opts.LoadNodes {
		return decoder.Skip()
	}

	id, ok := p.parseID(start)
	if !ok {
		return decoder.Skip()
	}

	node := &middle.RawNode{
		ID:         osm.NodeID(id),
		Attributes: p.parseAttributes(start),
		Tags:       make(map[string]string),
	}

	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "lat":
			node.Lat, _ = strconv.ParseFloat(attr.Value, 64)
		case "lon":
			node.Lon, _ = strconv.ParseFloat(attr.Value, 64)
		}
	}

	if p.opts.LoadNodeSubtree {
		sub, err := p.readSubtree(decoder)
		if err != nil {
			return err
		}
		node.Tags = sub.tags
	} else if err := decoder.Skip(); err != nil {
		return err
	}

	tables.Nodes[node.ID] = node
	p.stats.Nodes++
	return nil
}

// parseWay parses a way element
func (p *Parser) parseWay(decoder *xml.Decoder, start xml.StartElement, tables *middle.Tables) error {
	if !p.opts.LoadWays {
		return decoder.Skip()
	}

	id, ok := p.parseID(start)
	if !ok {
		return decoder.Skip()
	}

	way := &middle.RawWay{
		ID:         osm.WayID(id),
		Nodes:      []osm.NodeID{},
		Attributes: p.parseAttributes(start),
		Tags:       make(map[string]string),
	}

	if p.opts.LoadWaySubtree {
		sub, err := p.readSubtree(decoder)
		if err != nil {
			return err
		}
		way.Nodes = sub.nodeRefs
		way.Tags = sub.tags
	} else if err := decoder.Skip(); err != nil {
		return err
	}

	tables.Ways[way.ID] = way
	p.stats.Ways++
	return nil
}

// parseRelation parses a relation element
func (p *Parser) parseRelation(decoder *xml.Decoder, start xml.StartElement, tables *middle.Tables) error {
	if !p.opts.LoadRelations {
		return decoder.Skip()
	}

	id, ok := p.parseID(start)
	if !ok {
		return decoder.Skip()
	}

	rel := &middle.RawRelation{
		ID:         osm.RelationID(id),
		Members:    []middle.RelationMember{},
		Attributes: p.parseAttributes(start),
		Tags:       make(map[string]string),
	}

	if p.opts.LoadRelationSubtree {
		sub, err := p.readSubtree(decoder)
		if err != nil {
			return err
		}
		rel.Members = sub.members
		rel.Tags = sub.tags
	} else if err := decoder.Skip(); err != nil {
		return err
	}

	tables.Relations[rel.ID] = rel
	p.stats.Relations++
	return nil
}

func (p *Parser) parseID(start xml.StartElement) (int64, bool) {
	value, _ := attrValue(start, "id")
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		p.stats.Skipped++
		logger.Get().Debug("Skipping element without valid id",
			zap.String("element", start.Name.Local), zap.String("id", value))
		return 0, false
	}
	return id, true
}

// parseAttributes reads the enabled metadata attributes
func (p *Parser) parseAttributes(start xml.StartElement) *middle.Attributes {
	if !p.opts.LoadAdditionalAttr {
		return nil
	}

	attrs := &middle.Attributes{}
	fields := []struct {
		enabled bool
		name    string
		dst     **string
	}{
		{p.opts.LoadVisibleAttr, "visible", &attrs.Visible},
		{p.opts.LoadVersionAttr, "version", &attrs.Version},
		{p.opts.LoadChangesetAttr, "changeset", &attrs.Changeset},
		{p.opts.LoadTimestampAttr, "timestamp", &attrs.Timestamp},
		{p.opts.LoadUserAttr, "user", &attrs.User},
		{p.opts.LoadUIDAttr, "uid", &attrs.UID},
	}
	for _, f := range fields {
		if !f.enabled {
			continue
		}
		if v, ok := attrValue(start, f.name); ok {
			*f.dst = &v
		}
	}
	return attrs
}

// subtree collects the children of one entity
type subtree struct {
	nodeRefs []osm.NodeID
	members  []middle.RelationMember
	tags     map[string]string
}

// readSubtree consumes tokens up to and including the end tag of the
// element whose start tag was just read. It never reads past that end tag.
func (p *Parser) readSubtree(decoder *xml.Decoder) (*subtree, error) {
	sub := &subtree{
		nodeRefs: []osm.NodeID{},
		members:  []middle.RelationMember{},
		tags:     make(map[string]string),
	}

	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		switch se := token.(type) {
		case xml.StartElement:
			depth++
			// only direct children; anything inside unknown elements is skipped
			if depth != 2 {
				continue
			}
			switch se.Name.Local {
			case "tag":
				k, _ := attrValue(se, "k")
				v, _ := attrValue(se, "v")
				if k != "" {
					sub.tags[k] = v
				}
			case "nd":
				ref, err := strconv.ParseInt(firstValue(se, "ref"), 10, 64)
				if err != nil {
					p.stats.Skipped++
					continue
				}
				sub.nodeRefs = append(sub.nodeRefs, osm.NodeID(ref))
			case "member":
				ref, err := strconv.ParseInt(firstValue(se, "ref"), 10, 64)
				if err != nil {
					p.stats.Skipped++
					continue
				}
				sub.members = append(sub.members, middle.RelationMember{
					Type: osm.Type(firstValue(se, "type")),
					Ref:  ref,
					Role: firstValue(se, "role"),
				})
			}
		case xml.EndElement:
			depth--
		}
	}

	return sub, nil
}

func attrValue(se xml.StartElement, name string) (string, bool) {
	for _, attr := range se.Attr {
		if attr.Name.Local == name {
			return attr.Value, true
		}
	}
	return "", false
}

func firstValue(se xml.StartElement, name string) string {
	v, _ := attrValue(se, name)
	return v
}

// countingReader tracks how many bytes have been read from the stream
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n += int64(n)
	return n, err
}

// Position returns the number of bytes read so far
func (c *countingReader) Position() int64 {
	return c.n
}
