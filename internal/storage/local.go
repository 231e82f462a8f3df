package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LocalStorage lays out generated artifacts under a single output directory.
type LocalStorage struct {
	outputDir string
}

func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{outputDir: outputDir}
}

func (s *LocalStorage) AudioDir() string {
	return filepath.Join(s.outputDir, "audio")
}

func (s *LocalStorage) VideoDir() string {
	return filepath.Join(s.outputDir, "videos")
}

func (s *LocalStorage) AudioPath(ideaID int64, at time.Time) string {
	return filepath.Join(s.AudioDir(), fmt.Sprintf("audio_%d_%d.mp3", ideaID, at.UnixNano()))
}

func (s *LocalStorage) VideoPath(videoID int64, at time.Time) string {
	return filepath.Join(s.VideoDir(), fmt.Sprintf("video_%d_%d.mp4", videoID, at.UnixNano()))
}

func (s *LocalStorage) EnsureDirectories() error {
	if err := os.MkdirAll(s.AudioDir(), 0755); err != nil {
		return fmt.Errorf("failed to create audio directory: %w", err)
	}

	if err := os.MkdirAll(s.VideoDir(), 0755); err != nil {
		return fmt.Errorf("failed to create video directory: %w", err)
	}

	return nil
}
