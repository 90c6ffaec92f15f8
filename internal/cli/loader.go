package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/loopcost/internal/compiler"
	"github.com/roach88/loopcost/internal/hwconfig"
	"github.com/roach88/loopcost/internal/ir"
)

// LoadMode controls how errors are handled during program loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the programs and hardware found under the given
// paths.
type LoadResult struct {
	Programs  []compiler.Program
	Hardware  []hwconfig.Config
	FileCount int // Number of program files read
}

// Program returns the loaded program called name.
func (r *LoadResult) Program(name string) (compiler.Program, bool) {
	for _, p := range r.Programs {
		if p.Spec.Name == name {
			return p, true
		}
	}
	return compiler.Program{}, false
}

// LoadError represents an error that occurred during program loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// programExts are the file types a directory scan picks up besides CUE.
var programExts = []string{".yaml", ".yml", ".json"}

// LoadPrograms loads every program and hardware configuration under paths.
// A path may be a file (.cue, .yaml, .yml, .json) or a directory, whose
// CUE package and YAML/JSON files are all loaded. Directories are not
// searched recursively.
//
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadPrograms(paths []string, mode LoadMode) (*LoadResult, []error) {
	result := &LoadResult{}
	var errs []error
	fail := func(err error) bool {
		errs = append(errs, err)
		return mode == LoadModeFailFast
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}}
		}
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}}
		}

		if info.IsDir() {
			if stop := loadDir(result, path, fail); stop {
				return result, errs
			}
			continue
		}
		result.FileCount++
		if stop := loadFile(result, path, fail); stop {
			return result, errs
		}
	}

	if err := checkDuplicates(result.Programs); err != nil {
		errs = append(errs, err)
		if mode == LoadModeFailFast {
			return result, errs
		}
	}
	if result.FileCount == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no program files found in %s", strings.Join(paths, ", "))}}
	}
	if len(result.Programs) == 0 && len(result.Hardware) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no programs or hardware found"})
	}
	return result, errs
}

func loadDir(result *LoadResult, dir string, fail func(error) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fail(&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)})
	}

	var cueFiles, others []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		switch {
		case ext == ".cue":
			cueFiles = append(cueFiles, e.Name())
		case slices.Contains(programExts, ext):
			others = append(others, filepath.Join(dir, e.Name()))
		}
	}
	result.FileCount += len(cueFiles) + len(others)

	if len(cueFiles) > 0 {
		instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
		if len(instances) == 0 {
			return fail(&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"})
		}
		inst := instances[0]
		if inst.Err != nil {
			return fail(&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)})
		}
		value := cuecontext.New().BuildInstance(inst)
		if err := value.Err(); err != nil {
			return fail(&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)})
		}
		if stop := loadValue(result, value, fail); stop {
			return true
		}
	}

	for _, path := range others {
		if stop := loadFile(result, path, fail); stop {
			return true
		}
	}
	return false
}

func loadFile(result *LoadResult, path string, fail func(error) bool) bool {
	if strings.ToLower(filepath.Ext(path)) != ".cue" {
		u, err := compiler.LoadFile(path)
		if err != nil {
			return fail(convertCompileError(err, path))
		}
		result.Programs = append(result.Programs, u.Programs...)
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(&LoadError{Code: ErrCodeNotFound, Message: err.Error()})
	}
	value := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return fail(&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)})
	}
	return loadValue(result, value, fail)
}

// loadValue compiles program.<name> and hardware.<name> from a CUE value.
func loadValue(result *LoadResult, value cue.Value, fail func(error) bool) bool {
	if programsVal := value.LookupPath(cue.ParsePath("program")); programsVal.Exists() {
		iter, err := programsVal.Fields()
		if err != nil {
			if fail(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating programs: %v", err)}) {
				return true
			}
		} else {
			for iter.Next() {
				context := "program." + iter.Label()
				spec, err := compiler.CompileProgram(iter.Value())
				if err != nil {
					if fail(convertCompileError(err, context)) {
						return true
					}
					continue
				}
				tree, err := ir.BuildProgram(spec)
				if err != nil {
					if fail(convertCompileError(err, context)) {
						return true
					}
					continue
				}
				result.Programs = append(result.Programs, compiler.Program{Spec: spec, Tree: tree})
			}
		}
	}

	if hwVal := value.LookupPath(cue.ParsePath("hardware")); hwVal.Exists() {
		iter, err := hwVal.Fields()
		if err != nil {
			return fail(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating hardware: %v", err)})
		}
		for iter.Next() {
			c, err := compiler.CompileHardware(iter.Value())
			if err != nil {
				if fail(convertCompileError(err, "hardware."+iter.Label())) {
					return true
				}
				continue
			}
			result.Hardware = append(result.Hardware, c)
		}
	}
	return false
}

func checkDuplicates(programs []compiler.Program) error {
	seen := make(map[string]bool, len(programs))
	for _, p := range programs {
		if seen[p.Spec.Name] {
			return &LoadError{Code: ErrCodeDuplicate, Message: fmt.Sprintf("duplicate program %q", p.Spec.Name)}
		}
		seen[p.Spec.Name] = true
	}
	return nil
}

// convertCompileError converts a compiler or IR error to a LoadError with
// position info. context names where the error arose (a file or a CUE path).
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		code := MapFieldToErrorCode(compileErr.Field)
		if strings.HasPrefix(context, "hardware.") {
			code = ErrCodeInvalidHardware
		}
		return &LoadError{
			Code:    code,
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}

	var specErr *ir.SpecError
	if errors.As(err, &specErr) {
		return &LoadError{Code: ErrCodeInvalidNode, Message: fmt.Sprintf("%s: %v", context, err)}
	}
	var valErr ir.ValidationError
	if errors.As(err, &valErr) {
		return &LoadError{Code: ErrCodeInvalidTree, Message: fmt.Sprintf("%s: %v", context, err)}
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, context+":") {
		msg = context + ": " + msg
	}
	return &LoadError{Code: ErrCodeGeneric, Message: msg}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No program files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeDuplicate   = "E008" // Two programs share a name

	// Program errors
	ErrCodeInvalidNode   = "E101" // Malformed node (missing op, unknown field)
	ErrCodeInvalidVector = "E102" // Malformed vector declaration
	ErrCodeInvalidTree   = "E103" // Tree fails IR validation

	// Hardware errors
	ErrCodeInvalidHardware = "E111" // Hardware fails schema or validation
	ErrCodeUnknownHardware = "E112" // No profile, declaration or file by that name

	// Evaluation errors
	ErrCodeEvalFailed     = "E121" // Evaluation error
	ErrCodeStoreFailed    = "E122" // Run ledger error
	ErrCodeUnknownProgram = "E123" // --program names nothing loaded
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case strings.HasPrefix(field, "vectors"):
		return ErrCodeInvalidVector
	case strings.HasPrefix(field, "root"):
		return ErrCodeInvalidNode
	case strings.HasPrefix(field, "hardware"):
		return ErrCodeInvalidHardware
	default:
		return ErrCodeGeneric
	}
}
