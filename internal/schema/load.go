package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/livedb/internal/ir"
)

// LoadMode selects what LoadDir does after the first model error.
type LoadMode int

const (
	LoadModeFailFast   LoadMode = iota // return the first error
	LoadModeCollectAll                 // keep going and return every error
)

// Error codes for failures that happen before any model is compiled.
// Compile and validation failures use the Err* codes in errors.go.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeScanError   = "E002"
	ErrCodeNoFiles     = "E003"
	ErrCodeLoadFailed  = "E004"
	ErrCodeNotFound    = "E005"
	ErrCodeBuildFailed = "E006"
	ErrCodeNoModels    = "E008"
)

// LoadResult is what LoadDir compiled.
type LoadResult struct {
	Models    []*ir.ObjectSchema
	FileCount int
}

// LoadError is a coded load failure, positioned in the CUE source when
// the failure came from a model.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if !e.Pos.IsValid() {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
}

func loadFailure(code, format string, args ...any) []error {
	return []error{&LoadError{Code: code, Message: fmt.Sprintf(format, args...)}}
}

// LoadDir compiles every entry of the top-level "model" struct declared by
// the CUE package in dir, then validates the models against each other.
//
// A nil result means nothing could be compiled. Otherwise the result holds
// the models that did compile, alongside any errors.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	fileCount, errs := scanModelDir(dir)
	if errs != nil {
		return nil, errs
	}
	root, errs := buildPackage(dir)
	if errs != nil {
		return nil, errs
	}

	result := &LoadResult{FileCount: fileCount}
	stop := func() bool { return mode == LoadModeFailFast && len(errs) > 0 }

	if models := root.LookupPath(cue.ParsePath("model")); models.Exists() {
		iter, err := models.Fields()
		if err != nil {
			return result, loadFailure(ErrCodeGeneric, "iterating models: %v", err)
		}
		for iter.Next() && !stop() {
			s, err := CompileModel(iter.Value())
			if err != nil {
				errs = append(errs, convertCompileError(err, "model."+iter.Label()))
				continue
			}
			result.Models = append(result.Models, s)
		}
	}
	if stop() {
		return result, errs
	}
	if len(result.Models) == 0 && len(errs) == 0 {
		return result, loadFailure(ErrCodeNoModels, "no models found")
	}

	for _, verr := range ValidateAll(result.Models) {
		errs = append(errs, verr)
		if stop() {
			break
		}
	}
	return result, errs
}

func scanModelDir(dir string) (int, []error) {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return 0, loadFailure(ErrCodeNotFound, "models directory not found: %s", dir)
	case err != nil:
		return 0, loadFailure(ErrCodeNotFound, "error accessing models directory: %v", err)
	case !info.IsDir():
		return 0, loadFailure(ErrCodeNotFound, "not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return 0, loadFailure(ErrCodeScanError, "error scanning directory: %v", err)
	}
	if len(files) == 0 {
		return 0, loadFailure(ErrCodeNoFiles, "no CUE files found in %s", dir)
	}
	return len(files), nil
}

func buildPackage(dir string) (cue.Value, []error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, loadFailure(ErrCodeLoadFailed, "no CUE instances loaded")
	}
	if err := instances[0].Err; err != nil {
		return cue.Value{}, loadFailure(ErrCodeLoadFailed, "loading CUE files: %v", err)
	}
	v := cuecontext.New().BuildInstance(instances[0])
	if err := v.Err(); err != nil {
		return cue.Value{}, loadFailure(ErrCodeBuildFailed, "building CUE value: %v", err)
	}
	return v, nil
}

// LoadRegistry loads dir and registers every model, failing on the first
// error.
func LoadRegistry(dir string) (*Registry, error) {
	result, errs := LoadDir(dir, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	reg := NewRegistry()
	for _, s := range result.Models {
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// FindCUEFiles lists the .cue files under dir, recursively.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && strings.HasSuffix(path, ".cue") {
			files = append(files, path)
		}
		return err
	})
	return files, err
}

// convertCompileError prefixes a compile failure with where the model
// was declared and carries over its CUE position.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// MapFieldToErrorCode picks the validation code for the field a
// CompileError names.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "properties":
		return ErrNoProperties
	case "type":
		return ErrInvalidKind
	case "primaryKey", "ignored":
		return ErrInvalidPropertyName
	}
	switch {
	case strings.HasSuffix(field, ".type"):
		return ErrInvalidKind
	case strings.HasSuffix(field, ".default"):
		return ErrDefaultMismatch
	default:
		return ErrCodeGeneric
	}
}
