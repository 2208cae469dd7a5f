package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xavierjflanagan/Guardian-sub003/internal/config"
	"github.com/xavierjflanagan/Guardian-sub003/internal/logger"
	"github.com/xavierjflanagan/Guardian-sub003/internal/ocr"
	"github.com/xavierjflanagan/Guardian-sub003/internal/port"
	"github.com/xavierjflanagan/Guardian-sub003/internal/repository"
	"github.com/xavierjflanagan/Guardian-sub003/internal/service"
	s3storage "github.com/xavierjflanagan/Guardian-sub003/internal/storage/s3"
	"github.com/xavierjflanagan/Guardian-sub003/internal/validator"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run the encounter manifest pipeline for stored documents",
	}
	rootCmd.AddCommand(runCmd(), showCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the manifest for one document from its stored AI response",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, shellFileID, err := documentFlags(cmd)
			if err != nil {
				return err
			}
			responseFile, _ := cmd.Flags().GetString("response-file")
			pagesFile, _ := cmd.Flags().GetString("pages-file")
			policyFlag, _ := cmd.Flags().GetString("policy")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger.Init(cfg.Log)

			if policyFlag == "" {
				policyFlag = cfg.Manifest.Policy
			}
			policy, err := validator.ParsePolicy(policyFlag)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout := cfg.Manifest.ReplayTimeout(); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			db, encounterRepo, err := repository.Open(cfg)
			if err != nil {
				return fmt.Errorf("failed to open encounter store: %w", err)
			}
			defer db.Close()

			var storage port.ObjectStorage
			if responseFile == "" || pagesFile == "" {
				storage, err = s3storage.NewS3Client(ctx, &cfg.S3)
				if err != nil {
					return fmt.Errorf("failed to initialize S3 client: %w", err)
				}
			}

			response, err := readArtefact(ctx, storage, cfg.S3.Bucket, responseFile, cfg.Artefacts.ResponseKey(shellFileID.String()))
			if err != nil {
				return fmt.Errorf("loading AI response: %w", err)
			}

			var geometry port.PageGeometrySource
			if pagesFile != "" {
				data, err := os.ReadFile(pagesFile)
				if err != nil {
					return fmt.Errorf("reading pages file: %w", err)
				}
				pages, err := ocr.DecodePages(data)
				if err != nil {
					return err
				}
				geometry = ocr.StaticGeometry(pages)
			} else {
				geometry = ocr.NewStorageGeometrySource(storage, cfg.S3.Bucket, cfg.Artefacts.OCRKey)
			}

			svc := service.NewManifestService(encounterRepo, geometry, nil, service.ManifestConfig{
				Policy:           policy,
				IdentifiedInPass: cfg.Manifest.IdentifiedInPass,
				MaxPage:          cfg.Manifest.MaxPage,
			})
			manifest, err := svc.Build(ctx, &service.BuildManifestInput{
				PatientID:   patientID,
				ShellFileID: shellFileID,
				Response:    response,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, manifest)
		},
	}
	addDocumentFlags(cmd)
	cmd.Flags().String("response-file", "", "Read the AI response from a local file instead of object storage")
	cmd.Flags().String("pages-file", "", "Read OCR page geometry from a local file instead of object storage")
	cmd.Flags().String("policy", "", "Batch policy override (abort_all or skip_invalid)")
	return cmd
}

func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the encounters stored for one document",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, shellFileID, err := documentFlags(cmd)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger.Init(cfg.Log)

			db, encounterRepo, err := repository.Open(cfg)
			if err != nil {
				return fmt.Errorf("failed to open encounter store: %w", err)
			}
			defer db.Close()

			encounters, err := encounterRepo.ListByShellFile(cmd.Context(), patientID, shellFileID)
			if err != nil {
				return err
			}
			log.Debug().Int("count", len(encounters)).Msg("encounters loaded")
			return printJSON(cmd, encounters)
		},
	}
	addDocumentFlags(cmd)
	return cmd
}

func addDocumentFlags(cmd *cobra.Command) {
	cmd.Flags().String("patient", "", "Patient ID (uuid)")
	cmd.Flags().String("shell-file", "", "Shell file ID (uuid)")
	_ = cmd.MarkFlagRequired("patient")
	_ = cmd.MarkFlagRequired("shell-file")
}

func documentFlags(cmd *cobra.Command) (patientID, shellFileID uuid.UUID, err error) {
	patientStr, _ := cmd.Flags().GetString("patient")
	shellFileStr, _ := cmd.Flags().GetString("shell-file")
	if patientID, err = uuid.Parse(patientStr); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid --patient: %w", err)
	}
	if shellFileID, err = uuid.Parse(shellFileStr); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid --shell-file: %w", err)
	}
	return patientID, shellFileID, nil
}

// readArtefact reads a local file when path is set, otherwise the object at key.
func readArtefact(ctx context.Context, storage port.ObjectStorage, bucket, path, key string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return storage.Download(ctx, bucket, key)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
