package catalog

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/signalsfoundry/orbitview/core"
	"github.com/signalsfoundry/orbitview/model"
)

// ParseTLEText reads three-line element sets (name, line 1, line 2). Lines
// that do not form a valid triplet are skipped one at a time until the
// stream resynchronises. Dates are taken from the TLE epoch.
func ParseTLEText(r io.Reader) ([]model.Satellite, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read TLE text")
	}

	var sats []model.Satellite
	for i := 0; i+2 < len(lines); {
		name, line1, line2 := lines[i], lines[i+1], lines[i+2]
		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") || len(line1) < 7 {
			i++
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
		if err != nil {
			i += 3
			continue
		}
		epoch, _ := core.ParseEpoch(line1)
		sats = append(sats, model.Satellite{
			ID:    id,
			Name:  strings.TrimSpace(name),
			Line1: line1,
			Line2: line2,
			Date:  epoch,
		})
		i += 3
	}
	return sats, nil
}

// LoadTLEFile parses a three-line TLE file into a StaticSource paginated by
// pageSize. A file with no usable entries is an error.
func LoadTLEFile(path string, pageSize int) (*StaticSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open TLE file")
	}
	defer f.Close()

	sats, err := ParseTLEText(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if len(sats) == 0 {
		return nil, errors.Errorf("%s holds no usable TLE entries", path)
	}
	return NewStaticSource(sats, pageSize), nil
}
