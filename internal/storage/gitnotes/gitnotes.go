// Package gitnotes хранит снимки в git notes репозитория.
//
// Каждому ключу соответствует blob-объект с текстом ключа (git hash-object),
// к нему прикрепляется заметка с JSON снимка в ref refs/notes/<ref>.
// При заданном remote ref заметок забирается перед чтением и отправляется после записи.
package gitnotes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/storage"
	"github.com/unentropy/unentropy-sub001/internal/util/runner"
)

// Name — имя провайдера в конфигурации.
const Name = "git-notes"

// DefaultRef — имя ref заметок по умолчанию.
const DefaultRef = "unentropy"

const gitBinary = "git"

// Descriptor описывает провайдер для реестра storage.
var Descriptor = storage.Descriptor{
	Name:    Name,
	Options: []string{"ref", "remote", "push"},
	Open:    open,
}

// Store — провайдер поверх git notes.
type Store struct {
	exec    runner.Executor
	workDir string
	ref     string
	remote  string
	push    bool
	fetched bool
	logger  logging.Logger
}

func open(_ context.Context, opts storage.Options, deps storage.Deps) (storage.Provider, error) {
	if deps.Executor == nil {
		return nil, errors.New("git-notes: не задан исполнитель команд")
	}
	ref, err := opts.String("ref", DefaultRef)
	if err != nil {
		return nil, err
	}
	remote, err := opts.String("remote", "")
	if err != nil {
		return nil, err
	}
	push, err := opts.Bool("push", remote != "")
	if err != nil {
		return nil, err
	}
	if push && remote == "" {
		return nil, &storage.OptionError{Key: "push", Msg: "push требует remote"}
	}
	return New(deps.Executor, deps.WorkDir, ref, remote, push, deps.Logger)
}

// New создаёт провайдер для репозитория в workDir.
func New(exec runner.Executor, workDir, ref, remote string, push bool, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "refs/notes/")
	if ref == "" || strings.ContainsAny(ref, " ~^:?*[\\") {
		return nil, &storage.OptionError{Key: "ref", Msg: fmt.Sprintf("некорректное имя ref %q", ref)}
	}
	return &Store{
		exec:    exec,
		workDir: workDir,
		ref:     "refs/notes/" + ref,
		remote:  strings.TrimSpace(remote),
		push:    push,
		logger:  logger,
	}, nil
}

func (s *Store) git(ctx context.Context, stdin []byte, args ...string) (string, error) {
	res, err := s.exec.Run(ctx, runner.Command{
		Name:    gitBinary,
		Args:    args,
		WorkDir: s.workDir,
		// сообщения git разбираются по тексту
		Env:     []string{"LC_ALL=C"},
		Stdin:   stdin,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// object возвращает id blob-объекта для ключа, записывая его в базу объектов.
func (s *Store) object(ctx context.Context, key string) (string, error) {
	oid, err := s.git(ctx, []byte(key), "hash-object", "-w", "--stdin")
	if err != nil {
		return "", fmt.Errorf("git hash-object для ключа %q: %w", key, err)
	}
	return oid, nil
}

// syncFromRemote забирает ref заметок с remote один раз за время жизни провайдера.
func (s *Store) syncFromRemote(ctx context.Context) {
	if s.remote == "" || s.fetched {
		return
	}
	s.fetched = true
	refspec := "+" + s.ref + ":" + s.ref
	if _, err := s.git(ctx, nil, "fetch", "--quiet", s.remote, refspec); err != nil {
		// ref заметок может ещё не существовать на remote
		s.logger.Warn("Не удалось получить заметки с remote", "remote", s.remote, "ref", s.ref, "error", err)
	}
}

// Fetch читает заметку для ключа.
func (s *Store) Fetch(ctx context.Context, key string) (*metric.Snapshot, error) {
	s.syncFromRemote(ctx)

	oid, err := s.object(ctx, key)
	if err != nil {
		return nil, err
	}
	out, err := s.git(ctx, nil, "notes", "--ref", s.ref, "show", oid)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) && isNoNote(exitErr.Stderr) {
			return nil, storage.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("git notes show %s: %w", oid, err)
	}
	return metric.Decode([]byte(out))
}

// Store прикрепляет заметку с JSON снимка к объекту ключа, заменяя прежнюю.
func (s *Store) Store(ctx context.Context, key string, snap *metric.Snapshot) error {
	data, err := metric.Encode(snap)
	if err != nil {
		return err
	}
	oid, err := s.object(ctx, key)
	if err != nil {
		return err
	}
	if _, err := s.git(ctx, data, "notes", "--ref", s.ref, "add", "-f", "-F", "-", oid); err != nil {
		return fmt.Errorf("git notes add %s: %w", oid, err)
	}
	if s.push {
		if _, err := s.git(ctx, nil, "push", "--quiet", s.remote, s.ref+":"+s.ref); err != nil {
			return fmt.Errorf("git push %s %s: %w", s.remote, s.ref, err)
		}
	}
	s.logger.Debug("Снимок записан в git notes", "ref", s.ref, "object", oid)
	return nil
}

// Close ничего не делает.
func (s *Store) Close() error { return nil }

// isNoNote распознаёт вывод git notes show для объекта без заметки.
func isNoNote(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "no note found")
}
