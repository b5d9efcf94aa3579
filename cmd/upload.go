package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ca-srg/chatbridge/internal/metrics"
	"github.com/ca-srg/chatbridge/internal/types"
)

var (
	uploadPlatform string
	uploadFilename string
	uploadFile     string
	uploadContent  string
	uploadChannel  string
	uploadTitle    string
	uploadComment  string
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a text file to Slack or Discord",
	Long: `
Upload a UTF-8 text file to a Slack channel or through the configured
Discord webhook. The file body comes from --file or inline --content.

When --file is given and --filename is not, the name is taken from the
file path.

Examples:
  chatbridge upload --platform slack --channel C1234567890 --file ./report.txt
  chatbridge upload --platform slack --channel C1234567890 --filename notes.md --content "# Notes" --title "Meeting notes"
  chatbridge upload --platform discord --file ./deploy.log --comment "Full deploy log"
`,
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadPlatform, "platform", "p", "", "Target platform: slack or discord (required)")
	uploadCmd.Flags().StringVar(&uploadFilename, "filename", "", "Name for the uploaded file (defaults to the --file base name)")
	uploadCmd.Flags().StringVarP(&uploadFile, "file", "f", "", "Path of a local file to upload")
	uploadCmd.Flags().StringVar(&uploadContent, "content", "", "Inline file content to upload")
	uploadCmd.Flags().StringVarP(&uploadChannel, "channel", "c", "", "Slack channel ID (ignored for Discord webhooks)")
	uploadCmd.Flags().StringVar(&uploadTitle, "title", "", "Title shown with the file (Slack only)")
	uploadCmd.Flags().StringVar(&uploadComment, "comment", "", "Comment posted alongside the file")

	_ = uploadCmd.MarkFlagRequired("platform")
}

// resolveUploadSource picks the file body from --file or --content and
// fills the filename from the path when one was not given.
func resolveUploadSource(filePath, content, filename string) (string, string, error) {
	if filePath != "" && content != "" {
		return "", "", fmt.Errorf("--file and --content are mutually exclusive")
	}
	if filePath == "" && content == "" {
		return "", "", fmt.Errorf("one of --file or --content is required")
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", "", fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
		if filename == "" {
			filename = filepath.Base(filePath)
		}
		return string(data), filename, nil
	}
	return content, filename, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	content, filename, err := resolveUploadSource(uploadFile, uploadContent, uploadFilename)
	if err != nil {
		return err
	}

	ctx := context.Background()
	dispatcher, err := newDispatcher(ctx, cfg)
	if err != nil {
		return err
	}

	metrics.RecordInvocation(metrics.ModeCLI, types.ToolUpload)

	env := dispatcher.Upload(ctx, &types.UploadRequest{
		Platform: uploadPlatform,
		Filename: filename,
		Content:  content,
		Channel:  uploadChannel,
		Title:    uploadTitle,
		Comment:  uploadComment,
	})
	return emitEnvelope(cmd, types.ToolUpload, env)
}
