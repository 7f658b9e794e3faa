// CreatorSync - Creator Video Analytics Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/creatorsync

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type rowFields struct {
	VideoID  string `json:"video_id" validate:"notblank"`
	Username string `json:"username" validate:"notblank"`
}

type triggerRequest struct {
	Windows []int  `json:"windows" validate:"omitempty,max=4,unique,dive,window_days"`
	Reason  string `json:"reason" validate:"omitempty,max=20"`
}

func TestValidateStruct_NotBlank(t *testing.T) {
	tests := []struct {
		name       string
		input      rowFields
		wantFields []string
	}{
		{"valid", rowFields{VideoID: "v1", Username: "creator"}, nil},
		{"missing video id", rowFields{Username: "creator"}, []string{"video_id"}},
		{"whitespace username", rowFields{VideoID: "v1", Username: "   "}, []string{"username"}},
		{"both missing", rowFields{}, []string{"video_id", "username"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if tt.wantFields == nil {
				if err != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			got := err.Fields()
			if strings.Join(got, ",") != strings.Join(tt.wantFields, ",") {
				t.Errorf("fields = %v, want %v", got, tt.wantFields)
			}
			for _, e := range err.Errors() {
				if e.Tag() != "notblank" {
					t.Errorf("tag = %q, want notblank", e.Tag())
				}
			}
		})
	}
}

func TestValidateStruct_Windows(t *testing.T) {
	tests := []struct {
		name    string
		windows []int
		wantTag string
	}{
		{"empty uses defaults", nil, ""},
		{"typical", []int{30, 90}, ""},
		{"upper bound", []int{MaxWindowDays}, ""},
		{"zero", []int{0}, "window_days"},
		{"too long", []int{MaxWindowDays + 1}, "window_days"},
		{"duplicates", []int{30, 30}, "unique"},
		{"too many", []int{1, 2, 3, 4, 5}, "max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&triggerRequest{Windows: tt.windows})
			if tt.wantTag == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if got := err.Errors()[0].Tag(); got != tt.wantTag {
				t.Errorf("tag = %q, want %q", got, tt.wantTag)
			}
		})
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	err := ValidateStruct(&rowFields{VideoID: "v1"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Message != "username must not be blank" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "username" {
		t.Errorf("Details[field] = %v", apiErr.Details["field"])
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	err := ValidateStruct(&triggerRequest{Windows: []int{0}, Reason: strings.Repeat("x", 21)})
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("Details[fields] = %#v", apiErr.Details["fields"])
	}
	if !strings.Contains(apiErr.Message, "reason: reason must be at most 20 characters") {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestToAPIError_Empty(t *testing.T) {
	apiErr := (&RequestValidationError{}).ToAPIError()
	if apiErr.Message != "Validation failed" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestErrorMessages(t *testing.T) {
	type limits struct {
		Count int    `json:"count" validate:"gte=1,lte=10"`
		Mode  string `json:"mode" validate:"oneof=full incremental"`
	}

	err := ValidateStruct(&limits{Count: 0, Mode: "other"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{
		"count must be greater than or equal to 1",
		"mode must be one of: full incremental",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}
