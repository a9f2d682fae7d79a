/*
Copyright 2019 Intel Corporation

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package log

import (
	"os"
	"path/filepath"
)

// deflog is the default, binary-named logger.
var deflog = NewLogger(filepath.Base(filepath.Clean(os.Args[0])))

// Default returns the default Logger, named after the running binary.
func Default() Logger {
	return deflog
}

// Infof formats and emits an informational message on the default logger.
func Infof(format string, args ...interface{}) { deflog.Infof(format, args...) }

// Warnf formats and emits a warning message on the default logger.
func Warnf(format string, args ...interface{}) { deflog.Warnf(format, args...) }

// Errorf formats and emits an error message on the default logger.
func Errorf(format string, args ...interface{}) { deflog.Errorf(format, args...) }

// Fatalf formats and emits an error message and os.Exit()'s with status 1.
func Fatalf(format string, args ...interface{}) { deflog.Fatalf(format, args...) }

// Debugf formats and emits a debug message on the default logger.
func Debugf(format string, args ...interface{}) { deflog.Debugf(format, args...) }
