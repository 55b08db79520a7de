// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsEnabled(t *testing.T) {
	// Metrics should be enabled by default
	if !IsEnabled() {
		t.Error("Expected metrics to be enabled by default")
	}

	Disable()
	if IsEnabled() {
		t.Error("Expected metrics to be disabled after Disable()")
	}

	Enable()
	if !IsEnabled() {
		t.Error("Expected metrics to be enabled after Enable()")
	}
}

func TestRecordCeremony(t *testing.T) {
	Enable()

	CeremoniesTotal.Reset()
	CeremonyDuration.Reset()

	RecordCeremony(CeremonyRegistrationStart, StatusSuccess, 0.05)

	count := testutil.CollectAndCount(CeremoniesTotal)
	if count != 1 {
		t.Errorf("Expected 1 ceremony recorded, got %d", count)
	}

	histCount := testutil.CollectAndCount(CeremonyDuration)
	if histCount != 1 {
		t.Errorf("Expected 1 histogram sample, got %d", histCount)
	}

	RecordCeremony(CeremonyAuthenticationFinish, StatusError, 0.1)

	count = testutil.CollectAndCount(CeremoniesTotal)
	if count != 2 {
		t.Errorf("Expected 2 ceremonies recorded, got %d", count)
	}

	value := testutil.ToFloat64(CeremoniesTotal.WithLabelValues(CeremonyRegistrationStart, StatusSuccess))
	if value != 1 {
		t.Errorf("Expected counter value 1, got %f", value)
	}
}

func TestRecordCeremonyWhenDisabled(t *testing.T) {
	Disable()
	defer Enable()

	CeremoniesTotal.Reset()

	RecordCeremony(CeremonyRegistrationStart, StatusSuccess, 0.05)

	count := testutil.CollectAndCount(CeremoniesTotal)
	if count != 0 {
		t.Errorf("Expected no ceremonies recorded while disabled, got %d", count)
	}
}

func TestRecordStoreOperation(t *testing.T) {
	Enable()

	StoreOperationsTotal.Reset()
	StoreOperationDuration.Reset()

	RecordStoreOperation(OpCreateUserWithCredential, StatusSuccess, 0.02)
	RecordStoreOperation(OpFindCredential, StatusError, 0.01)

	count := testutil.CollectAndCount(StoreOperationsTotal)
	if count != 2 {
		t.Errorf("Expected 2 store operations recorded, got %d", count)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	Enable()

	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "200", 0.05)

	value := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "200"))
	if value != 1 {
		t.Errorf("Expected counter value 1, got %f", value)
	}
}

func TestActiveConnections(t *testing.T) {
	Enable()

	ActiveConnections.Set(0)

	IncrementActiveConnections()
	IncrementActiveConnections()
	DecrementActiveConnections()

	value := testutil.ToFloat64(ActiveConnections)
	if value != 1 {
		t.Errorf("Expected 1 active connection, got %f", value)
	}
}
