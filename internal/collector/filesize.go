package collector

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// fileSize суммирует размер всех файлов, попавших под шаблоны patterns.
// Директории учитываются рекурсивно, каждый файл считается один раз.
// Шаблон без совпадений — ошибка: пустой результат почти всегда означает
// неверный путь, а не нулевой размер.
func fileSize(workDir string, patterns []string) (float64, error) {
	seen := make(map[string]struct{})
	var total int64

	for _, pattern := range patterns {
		matches, err := filepath.Glob(resolvePath(workDir, pattern))
		if err != nil {
			return 0, fmt.Errorf("некорректный шаблон %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return 0, fmt.Errorf("по шаблону %q не найдено файлов", pattern)
		}
		for _, match := range matches {
			err := filepath.WalkDir(match, func(path string, d fs.DirEntry, walkErr error) error {
				if walkErr != nil {
					return walkErr
				}
				if d.IsDir() {
					return nil
				}
				if _, dup := seen[path]; dup {
					return nil
				}
				info, err := d.Info()
				if err != nil {
					return err
				}
				if info.Mode().IsRegular() {
					seen[path] = struct{}{}
					total += info.Size()
				}
				return nil
			})
			if err != nil {
				return 0, fmt.Errorf("не удалось обойти %q: %w", match, err)
			}
		}
	}
	return float64(total), nil
}

// resolvePath делает относительный путь абсолютным относительно workDir.
func resolvePath(workDir, p string) string {
	if workDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workDir, p)
}

// readReport читает файл отчёта покрытия.
func readReport(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать отчёт %q: %w", path, err)
	}
	return data, nil
}
