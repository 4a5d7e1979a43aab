package errors

import (
	"testing"
)

func TestNewCode(t *testing.T) {
	// Test valid codes
	validCodes := []string{
		"objectstore.not_found",
		"format.ambiguous",
		"delta.gap_at_version",
		"iceberg.no_metadata",
		"analyzer.timeout",
	}

	for _, codeStr := range validCodes {
		code, err := NewCode(codeStr)
		if err != nil {
			t.Errorf("Expected valid code '%s' to succeed, got error: %v", codeStr, err)
		}
		if code.String() != codeStr {
			t.Errorf("Expected code string '%s', got '%s'", codeStr, code.String())
		}
	}

	// Test invalid codes
	invalidCodes := []string{
		"invalid",                  // No dot
		"objectstore.",             // Ends with dot
		".not_found",               // Starts with dot
		"ObjectStore.not_found",    // Uppercase
		"objectstore.not-found",    // Hyphens not allowed
		"objectstore.not_found.",   // Ends with dot
		"objectstore..not_found",   // Double dot
		"error.not_found",          // Contains "error"
		"err.not_found",            // Contains "err"
	}

	for _, codeStr := range invalidCodes {
		_, err := NewCode(codeStr)
		if err == nil {
			t.Errorf("Expected invalid code '%s' to fail, but it succeeded", codeStr)
		}
	}
}

func TestMustNewCode(t *testing.T) {
	// Test valid code
	code := MustNewCode("objectstore.not_found")
	if code.String() != "objectstore.not_found" {
		t.Errorf("Expected code 'objectstore.not_found', got '%s'", code.String())
	}

	// Test that it panics with invalid code
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected MustNewCode to panic with invalid code")
		}
	}()
	MustNewCode("invalid")
}

func TestCodePackageAndName(t *testing.T) {
	code := MustNewCode("objectstore.not_found")

	if code.Package() != "objectstore" {
		t.Errorf("Expected package 'objectstore', got '%s'", code.Package())
	}

	if code.Name() != "not_found" {
		t.Errorf("Expected name 'not_found', got '%s'", code.Name())
	}
}

func TestCodeIsValid(t *testing.T) {
	validCode := MustNewCode("objectstore.not_found")
	if !validCode.IsValid() {
		t.Error("Expected valid code to return true for IsValid()")
	}

	// Create an invalid code by directly setting the value
	invalidCode := Code{value: "invalid"}
	if invalidCode.IsValid() {
		t.Error("Expected invalid code to return false for IsValid()")
	}
}

func TestCodeEquals(t *testing.T) {
	code1 := MustNewCode("objectstore.not_found")
	code2 := MustNewCode("objectstore.not_found")
	code3 := MustNewCode("delta.gap_at_version")

	if !code1.Equals(code2) {
		t.Error("Expected identical codes to be equal")
	}

	if code1.Equals(code3) {
		t.Error("Expected different codes to not be equal")
	}
}

func TestPackageSpecificCodeConstructors(t *testing.T) {
	if c := ObjectstoreCode("not_found"); c.String() != "objectstore.not_found" {
		t.Errorf("Expected 'objectstore.not_found', got '%s'", c.String())
	}

	if c := FormatCode("ambiguous"); c.String() != "format.ambiguous" {
		t.Errorf("Expected 'format.ambiguous', got '%s'", c.String())
	}

	if c := DeltaCode("gap_at_version"); c.String() != "delta.gap_at_version" {
		t.Errorf("Expected 'delta.gap_at_version', got '%s'", c.String())
	}

	if c := IcebergCode("no_metadata"); c.String() != "iceberg.no_metadata" {
		t.Errorf("Expected 'iceberg.no_metadata', got '%s'", c.String())
	}

	if c := MetricsCode("join_failed"); c.String() != "metrics.join_failed" {
		t.Errorf("Expected 'metrics.join_failed', got '%s'", c.String())
	}

	if c := ScoreCode("invalid_weight"); c.String() != "score.invalid_weight" {
		t.Errorf("Expected 'score.invalid_weight', got '%s'", c.String())
	}

	if c := AnalyzerCode("timeout"); c.String() != "analyzer.timeout" {
		t.Errorf("Expected 'analyzer.timeout', got '%s'", c.String())
	}
}

func TestPackageCode(t *testing.T) {
	// Test custom package code
	customCode := PackageCode("custom_package", "specific_failure")
	if customCode.String() != "custom_package.specific_failure" {
		t.Errorf("Expected 'custom_package.specific_failure', got '%s'", customCode.String())
	}

	// Test that it validates the format
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected PackageCode to panic with invalid format")
		}
	}()
	PackageCode("InvalidPackage", "error")
}

func TestCommonCodes(t *testing.T) {
	// Test that common codes are properly formatted
	commonCodes := []Code{
		CommonInternal,
		CommonNotFound,
		CommonValidation,
		CommonTimeout,
		CommonUnauthorized,
		CommonForbidden,
		CommonConflict,
		CommonUnsupported,
		CommonInvalidInput,
		CommonAlreadyExists,
	}

	for _, code := range commonCodes {
		if !code.IsValid() {
			t.Errorf("Common code '%s' is not valid", code.String())
		}

		if code.Package() != "common" {
			t.Errorf("Expected package 'common' for '%s', got '%s'", code.String(), code.Package())
		}
	}
}
