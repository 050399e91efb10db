// Package mock provides test double implementations of AI service interfaces.
//
// MockModel implements ai.Model without any network access. Tests either
// inject a function, queue a script of replies, or rely on the default reply,
// which is a valid extraction record.
//
// # Usage in Tests
//
//	// Scripted replies, consumed in call order
//	model := mock.NewMockModel().WithResponses(
//	    mock.Response{Err: ai.NewModelError(ai.KindRateLimited, errors.New("429"))},
//	    mock.Response{Text: `{"overview":"x","methods":[],"complexity":"low"}`},
//	)
//
//	// Behavior keyed on the prompt
//	model := mock.NewMockModel().
//	    WithCompleteFunc(func(ctx context.Context, req ai.Request) (string, error) {
//	        if strings.Contains(req.Prompt, "broken.go") {
//	            return "", ai.NewModelError(ai.KindFatal, errors.New("401"))
//	        }
//	        return mock.DefaultResponse, nil
//	    })
//
//	// Check call counts
//	count := model.CallCount()
package mock
