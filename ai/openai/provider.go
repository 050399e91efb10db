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


package openai

import (
	"log/slog"

	"github.com/poiesic/codemine/ai"
)

type Provider struct {
	config *ai.Config
	model  *Model
	logger *slog.Logger
}

func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create model (using internal constructor for concrete type)
	model, err := newModel(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config: config,
		model:  model,
		logger: slog.Default().With("component", "openai-provider"),
	}, nil
}

func (p *Provider) Model() ai.Model {
	return p.model
}

func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
