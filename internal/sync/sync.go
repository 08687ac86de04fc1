// Package sync reconciles card sources with the store. New cards found
// in a source enter the study bank in box 1, due immediately; cards
// that vanished from their source are deleted. Scheduling state of
// unchanged cards is never touched.
package sync

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/leitner/internal/cardhash"
	"github.com/conorfennell/leitner/internal/domain"
	"github.com/conorfennell/leitner/internal/gitsource"
	"github.com/conorfennell/leitner/internal/parser"
	"github.com/conorfennell/leitner/internal/storage"
)

// Run iterates over all configured sources and reconciles each one.
// reposDir is where git sources keep their local checkouts. now is the
// reference instant new cards become due at.
func Run(db *storage.DB, reposDir string, now time.Time) error {
	slog.Info("starting sync for all sources")
	sources, err := db.GetAllSources()
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("no sources configured")
		return nil
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		scanRoot := source.Path
		if source.Type == "git" {
			localPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("error determining local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(source.Path, localPath); err != nil {
				slog.Error("error syncing git repo", "url", source.Path, "error", err)
				continue
			}
			scanRoot = localPath
		}

		reconcile(db, source, scanRoot, now)
	}
	slog.Info("sync complete")
	return nil
}

// SourceType guesses whether a path refers to a git remote or a local
// directory.
func SourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return "git"
	}
	return "local"
}

func reconcile(db *storage.DB, source storage.Source, root string, now time.Time) {
	var parsed, inserted int
	var errs []error
	foundHashes := make(map[string]bool)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			errs = append(errs, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, card := range fileCards {
			applyScopeDefaults(&card, root, path)
			card.Hash = cardhash.Hash(card)
			parsed++
			foundHashes[card.Hash] = true

			existing, findErr := db.FindCardByHash(card.Hash)
			if findErr != nil {
				errs = append(errs, fmt.Errorf("db check for %s: %w", card.Hash, findErr))
				continue
			}
			if existing != nil {
				continue
			}

			slog.Info("new card found, inserting", "hash", card.Hash, "subject", card.Subject, "topic", card.Topic)
			if err := db.UpsertSubject(card.Subject); err != nil {
				errs = append(errs, fmt.Errorf("subject upsert for %s: %w", card.Hash, err))
				continue
			}
			if err := db.InsertCard(card, source.ID, now); err != nil {
				errs = append(errs, fmt.Errorf("db insert for %s: %w", card.Hash, err))
				continue
			}
			inserted++
		}
		return nil
	})

	if walkErr != nil {
		slog.Error("error walking directory", "path", root, "error", walkErr)
		return
	}

	dbCards, err := db.GetCardsBySourceID(source.ID)
	if err != nil {
		slog.Error("error getting cards for source", "source_id", source.ID, "error", err)
		return
	}

	var orphaned int
	for _, dbCard := range dbCards {
		if foundHashes[dbCard.Hash] {
			continue
		}
		slog.Info("orphaned card, deleting", "hash", dbCard.Hash)
		orphaned++
		if err := db.DeleteCardByHash(dbCard.Hash); err != nil {
			slog.Warn("failed to delete orphaned card", "hash", dbCard.Hash, "error", err)
		}
	}

	if err := db.UpdateSourceLastScanned(source.ID, now); err != nil {
		slog.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", root,
		"parsed_cards", parsed,
		"inserted", inserted,
		"orphaned_deleted", orphaned,
		"errors", len(errs),
	)
}

// applyScopeDefaults fills subject and topic for cards whose file did
// not label them: the subject falls back to the first directory under
// the source root (or the root's base name), the topic to the file
// name.
func applyScopeDefaults(card *domain.Card, root, path string) {
	if card.Subject == "" {
		card.Subject = defaultSubject(root, path)
	}
	if card.Topic == "" {
		base := filepath.Base(path)
		card.Topic = strings.TrimSuffix(base, filepath.Ext(base))
	}
}

func defaultSubject(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.Base(root)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 1 {
		return parts[0]
	}
	return filepath.Base(root)
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		// scp-style git@host:user/repo.git
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitized := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitized), nil
}
