package nlu

// QueryResult is the decoded queryResult of a Dialogflow detectIntent call.
// fulfillmentMessages, action and outputContexts are all optional on the wire
// and decode to their zero values when absent.
type QueryResult struct {
	QueryText           string               `json:"queryText"`
	Action              string               `json:"action"`
	Parameters          map[string]any       `json:"parameters"`
	FulfillmentText     string               `json:"fulfillmentText"`
	FulfillmentMessages []FulfillmentMessage `json:"fulfillmentMessages"`
	OutputContexts      []Context            `json:"outputContexts"`
	LanguageCode        string               `json:"languageCode"`
}

// Context is one piece of dialog state returned with a result. Name is the
// fully-qualified context path; Parameters holds the slots the dialog has
// collected so far.
type Context struct {
	Name          string         `json:"name"`
	LifespanCount int            `json:"lifespanCount"`
	Parameters    map[string]any `json:"parameters"`
}

// StringParam extracts a named string slot from the context parameters. A
// missing slot, a non-string value or an explicitly empty value all come back
// as "".
func (c Context) StringParam(name string) string {
	return stringParam(c.Parameters, name)
}

// FulfillmentMessage is one message fragment of a result. Exactly one of the
// payload pointers is set.
type FulfillmentMessage struct {
	Text         *TextMessage         `json:"text,omitempty"`
	QuickReplies *QuickRepliesMessage `json:"quickReplies,omitempty"`
	Image        *ImageMessage        `json:"image,omitempty"`
	Card         *CardMessage         `json:"card,omitempty"`
}

// TextMessage is a group of text lines.
type TextMessage struct {
	Text []string `json:"text"`
}

// QuickRepliesMessage is a quick-reply question.
type QuickRepliesMessage struct {
	Title        string   `json:"title"`
	QuickReplies []string `json:"quickReplies"`
}

// ImageMessage references an image.
type ImageMessage struct {
	ImageURI string `json:"imageUri"`
}

// CardMessage is a single carousel card.
type CardMessage struct {
	Title    string       `json:"title"`
	Subtitle string       `json:"subtitle"`
	ImageURI string       `json:"imageUri"`
	Buttons  []CardButton `json:"buttons"`
}

// CardButton carries a label and an opaque postback target. Targets beginning
// with "http" are rendered as link buttons downstream.
type CardButton struct {
	Text     string `json:"text"`
	Postback string `json:"postback"`
}

// StringParam extracts a named string parameter from the result parameters.
func (r *QueryResult) StringParam(name string) string {
	return stringParam(r.Parameters, name)
}

func stringParam(params map[string]any, name string) string {
	if params == nil {
		return ""
	}
	v, ok := params[name]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

type detectIntentRequest struct {
	QueryInput  queryInput   `json:"queryInput"`
	QueryParams *queryParams `json:"queryParams,omitempty"`
}

type queryInput struct {
	Text textInput `json:"text"`
}

type textInput struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode"`
}

type queryParams struct {
	Payload map[string]any `json:"payload,omitempty"`
}

type detectIntentResponse struct {
	ResponseID  string      `json:"responseId"`
	QueryResult QueryResult `json:"queryResult"`
}
