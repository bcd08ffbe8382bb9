package collector

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// lcovTotals — суммарные счётчики по всем записям LCOV.
type lcovTotals struct {
	linesFound, linesHit       int64
	branchesFound, branchesHit int64
	funcsFound, funcsHit       int64
}

// lcovCoverage возвращает процент покрытия выбранного вида из LCOV-отчёта.
func lcovCoverage(path string, src Source) (float64, error) {
	data, err := readReport(path)
	if err != nil {
		return 0, err
	}
	totals, err := parseLCOV(data)
	if err != nil {
		return 0, err
	}

	var found, hit int64
	switch src.Coverage {
	case CoverageBranch:
		found, hit = totals.branchesFound, totals.branchesHit
	case CoverageFunction:
		found, hit = totals.funcsFound, totals.funcsHit
	default:
		found, hit = totals.linesFound, totals.linesHit
	}
	if found == 0 {
		return coverageFallback(src, path)
	}
	return float64(hit) / float64(found) * 100, nil
}

// parseLCOV суммирует поля LF/LH, BRF/BRH, FNF/FNH всех записей.
func parseLCOV(data []byte) (lcovTotals, error) {
	var t lcovTotals
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !ok {
			continue
		}
		var dst *int64
		switch key {
		case "LF":
			dst = &t.linesFound
		case "LH":
			dst = &t.linesHit
		case "BRF":
			dst = &t.branchesFound
		case "BRH":
			dst = &t.branchesHit
		case "FNF":
			dst = &t.funcsFound
		case "FNH":
			dst = &t.funcsHit
		default:
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return t, &ParseError{Input: scanner.Text(), Err: err}
		}
		*dst += n
	}
	if err := scanner.Err(); err != nil {
		return t, fmt.Errorf("ошибка чтения LCOV: %w", err)
	}
	return t, nil
}

type coberturaReport struct {
	XMLName    xml.Name           `xml:"coverage"`
	LineRate   string             `xml:"line-rate,attr"`
	BranchRate string             `xml:"branch-rate,attr"`
	Packages   []coberturaPackage `xml:"packages>package"`
}

type coberturaPackage struct {
	Classes []coberturaClass `xml:"classes>class"`
}

type coberturaClass struct {
	Methods []coberturaMethod `xml:"methods>method"`
}

type coberturaMethod struct {
	Name     string `xml:"name,attr"`
	LineRate string `xml:"line-rate,attr"`
}

// coberturaCoverage возвращает процент покрытия из Cobertura XML.
// line и branch берутся из атрибутов корневого элемента, function —
// доля методов с ненулевым line-rate.
func coberturaCoverage(path string, src Source) (float64, error) {
	data, err := readReport(path)
	if err != nil {
		return 0, err
	}
	var report coberturaReport
	if err := xml.Unmarshal(data, &report); err != nil {
		return 0, &ParseError{Input: path, Err: err}
	}

	switch src.Coverage {
	case CoverageBranch:
		return rateToPercent(report.BranchRate, src, path)
	case CoverageFunction:
		var total, covered int
		for _, p := range report.Packages {
			for _, c := range p.Classes {
				for _, m := range c.Methods {
					total++
					if rate, err := strconv.ParseFloat(m.LineRate, 64); err == nil && rate > 0 {
						covered++
					}
				}
			}
		}
		if total == 0 {
			return coverageFallback(src, path)
		}
		return float64(covered) / float64(total) * 100, nil
	default:
		return rateToPercent(report.LineRate, src, path)
	}
}

func rateToPercent(raw string, src Source, path string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return coverageFallback(src, path)
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ParseError{Input: raw, Err: err}
	}
	return rate * 100, nil
}

func coverageFallback(src Source, path string) (float64, error) {
	if src.Fallback != nil {
		return *src.Fallback, nil
	}
	kind := src.Coverage
	if kind == "" {
		kind = CoverageLine
	}
	return 0, fmt.Errorf("в отчёте %q нет данных покрытия вида %s", path, kind)
}
