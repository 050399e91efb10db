// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package mock

import "github.com/poiesic/codemine/ai"

// MockProvider is a test double for ai.Provider.
type MockProvider struct {
	model *MockModel
}

// NewMockProvider creates a new mock provider with a default mock model.
//
// Returns ai.Provider interface for consistency with production constructors.
// Use GetMockModel() to access the concrete type for test assertions.
func NewMockProvider() ai.Provider {
	return &MockProvider{model: NewMockModel()}
}

// NewMockProviderWithModel creates a mock provider around model.
func NewMockProviderWithModel(model *MockModel) ai.Provider {
	return &MockProvider{model: model}
}

// Model returns the mock model.
func (p *MockProvider) Model() ai.Model {
	return p.model
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockModel returns the underlying mock model for test assertions.
func (p *MockProvider) GetMockModel() *MockModel {
	return p.model
}
