package router

import "encoding/json"

// ExtractCollectionsReply interprets the collections backend's response:
// either {"agent_response": "..."} or a bare JSON string.
func ExtractCollectionsReply(raw json.RawMessage) (Reply, error) {
	var obj struct {
		AgentResponse string `json:"agent_response"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.AgentResponse != "" {
		return Reply{Text: obj.AgentResponse}, nil
	}

	var direct string
	if err := json.Unmarshal(raw, &direct); err == nil {
		return Reply{Text: direct}, nil
	}

	// Unknown but well-formed JSON: treat as an empty reply, which the
	// router turns into "nothing spoken".
	return Reply{}, nil
}

// ExtractPortfolioReply interprets the portfolio backend's response:
// {"response": "...", "image_base64": "..."} where the image is optional.
func ExtractPortfolioReply(raw json.RawMessage) (Reply, error) {
	var obj struct {
		Response    string `json:"response"`
		ImageBase64 string `json:"image_base64"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Reply{}, err
	}
	return Reply{Text: obj.Response, ImageB64: obj.ImageBase64}, nil
}
