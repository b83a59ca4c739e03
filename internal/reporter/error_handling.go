package reporter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"sales-reconciliation-service/internal/reconciler"
	"sales-reconciliation-service/pkg/errors"
	"sales-reconciliation-service/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with error categorisation, a
// console fallback and file output through afero
type SafeReportGenerator struct {
	*ReportGenerator
	fs     afero.Fs
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator writing files through fs
func NewSafeReportGenerator(config *ReportConfig, fs afero.Fs, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("check --output-format and --decimals")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		fs:              fs,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely generates a report, falling back to console text when
// a structured format fails
func (srg *SafeReportGenerator) GenerateReportSafely(outcome *reconciler.Outcome, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	}).Debug("Starting report generation")

	if err := srg.validateInputs(outcome, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	// Render into a buffer so a failed format never leaves partial output.
	var buf bytes.Buffer
	err := srg.GenerateReport(outcome, &buf)
	if err != nil {
		srg.logger.WithError(err).Warn("Primary report generation failed, attempting fallback")
		if !srg.shouldAttemptFormatFallback() {
			return srg.wrapGenerationError(err)
		}
		buf.Reset()
		if err := srg.generateWithFormatFallback(outcome, &buf, err); err != nil {
			return err
		}
	}

	if _, err := writer.Write(buf.Bytes()); err != nil {
		return srg.wrapGenerationError(err)
	}

	srg.logger.Debug("Report generation completed successfully")
	return nil
}

// WriteReportFile generates the report into the file at path, creating
// parent directories
func (srg *SafeReportGenerator) WriteReportFile(outcome *reconciler.Outcome, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := srg.fs.MkdirAll(dir, 0755); err != nil {
			return errors.FileError(errors.CodeDirectoryError, dir, err)
		}
	}

	file, err := srg.fs.Create(path)
	if err != nil {
		if os.IsPermission(err) {
			return errors.FileError(errors.CodeFilePermission, path, err)
		}
		return errors.FileError(errors.CodeDirectoryError, path, err)
	}

	if err := srg.GenerateReportSafely(outcome, file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	srg.logger.WithField("output_file", path).Info("Report written")
	return nil
}

// validateInputs validates the inputs for report generation
func (srg *SafeReportGenerator) validateInputs(outcome *reconciler.Outcome, writer io.Writer) error {
	if outcome == nil || outcome.Table == nil {
		return errors.ValidationError(
			errors.CodeMissingField,
			"outcome",
			nil,
			nil,
		).WithSuggestion("run the reconciliation before generating a report")
	}

	if writer == nil {
		return errors.ValidationError(
			errors.CodeMissingField,
			"writer",
			nil,
			nil,
		).WithSuggestion("provide a valid output writer")
	}

	return nil
}

// shouldAttemptFormatFallback determines if a format fallback should be attempted
func (srg *SafeReportGenerator) shouldAttemptFormatFallback() bool {
	return srg.config.Format != FormatConsole && !srg.config.Format.IsBinary()
}

// generateWithFormatFallback renders console text after a failed format
func (srg *SafeReportGenerator) generateWithFormatFallback(outcome *reconciler.Outcome, writer io.Writer, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole

	srg.logger.WithField("fallback_format", FormatConsole).Info("Attempting format fallback")

	fallbackGenerator, err := NewReportGenerator(&fallbackConfig)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}

	fmt.Fprintf(writer, "NOTE: Report generated in fallback format due to error with requested format\n")
	fmt.Fprintf(writer, "Original error: %v\n\n", originalErr)

	if err := fallbackGenerator.GenerateReport(outcome, writer); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", originalErr, err),
		)
	}

	return nil
}

// wrapGenerationError wraps generation errors with context
func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return errors.InternalError(
		errors.CodeProcessingError,
		"report_generation",
		err,
	).WithSuggestion("check the output destination and report format settings")
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case afero.File:
		return fmt.Sprintf("file:%s", w.Name())
	case nil:
		return "none"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}
