// Package upload publishes a finished video to YouTube via the Data API v3,
// authenticating with a long-lived refresh token from the environment.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"shortreel-pipeline/config"
	"shortreel-pipeline/types"
)

// Uploader handles YouTube video upload.
type Uploader struct {
	cfg *config.Config
	log *logrus.Entry
}

// New creates a new Uploader.
func New(cfg *config.Config) *Uploader {
	return &Uploader{
		cfg: cfg,
		log: logrus.WithField("component", "upload"),
	}
}

// Run uploads the video file with its metadata and returns the video ID and
// watch URL.
func (u *Uploader) Run(ctx context.Context, videoFile string, metadata *types.VideoMetadata) (string, string, error) {
	u.log.Info("authenticating with YouTube API")

	client, err := u.oauthClient(ctx)
	if err != nil {
		return "", "", fmt.Errorf("youtube auth: %w", err)
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", "", fmt.Errorf("youtube service: %w", err)
	}

	u.log.Infof("uploading %q", metadata.Title)

	visibility := metadata.Visibility
	if visibility == "" {
		visibility = u.cfg.Upload.Visibility
	}
	categoryID := metadata.CategoryID
	if categoryID == "" {
		categoryID = u.cfg.Upload.CategoryID
	}

	snippet := &youtube.VideoSnippet{
		Title:                metadata.Title,
		Description:          metadata.Description,
		Tags:                 metadata.Tags,
		CategoryId:           categoryID,
		DefaultLanguage:      u.cfg.Upload.DefaultLanguage,
		DefaultAudioLanguage: u.cfg.Upload.DefaultLanguage,
	}

	status := &youtube.VideoStatus{
		PrivacyStatus:           visibility,
		SelfDeclaredMadeForKids: u.cfg.Upload.MadeForKids,
	}

	// A scheduled video must be private until its publish time.
	if metadata.ScheduledTimeUTC != "" && visibility == "public" {
		status.PrivacyStatus = "private"
		status.PublishAt = metadata.ScheduledTimeUTC
		u.log.Infof("scheduled for %s UTC", metadata.ScheduledTimeUTC)
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return "", "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		u.log.Infof("file size: %.1f MB", float64(fi.Size())/1024/1024)
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, &youtube.Video{
		Snippet: snippet,
		Status:  status,
	})
	call.NotifySubscribers(u.cfg.Upload.NotifySubscribers)
	call.Media(f)

	uploaded, err := call.Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}

	videoID := uploaded.Id
	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	u.log.Infof("uploaded: %s", videoURL)

	return videoID, videoURL, nil
}

// oauthClient builds an OAuth2 HTTP client from env credentials.
func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")

	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}

	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}

	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token)), nil
}

// LogUpload records the upload result in the logs directory.
func LogUpload(videoID, videoURL, videoFile, logsDir string, metadata *types.VideoMetadata) error {
	entry := map[string]interface{}{
		"video_id":      videoID,
		"video_url":     videoURL,
		"title":         metadata.Title,
		"scheduled_utc": metadata.ScheduledTimeUTC,
		"uploaded_at":   time.Now().UTC().Format(time.RFC3339),
		"video_file":    videoFile,
	}

	path := filepath.Join(logsDir, fmt.Sprintf("upload_%s.json", time.Now().Format("20060102_150405")))
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
