package server

// LocaleRequest: 로케일 변경 요청
type LocaleRequest struct {
	Locale string `json:"locale" binding:"required"`
}

// ThemeRequest: 테마 변경 요청
type ThemeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

// ThemeResponse: 테마 조회/변경 응답
type ThemeResponse struct {
	Theme string `json:"theme"`
}

// LookupResponse: 사전 키 조회 응답
type LookupResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// ValidateContentRequest: 본문 품질 검사 요청. 기준을 생략하면 설정값을 사용한다.
type ValidateContentRequest struct {
	Content  *string `json:"content"`
	MinWords *int    `json:"min_words" binding:"omitempty,min=0"`
	MinChars *int    `json:"min_chars" binding:"omitempty,min=0"`
}

// ReadyResponse: 준비 상태 응답
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
