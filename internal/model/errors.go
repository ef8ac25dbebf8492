// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Messageはクライアントにそのまま返されるため、既存クライアント互換の英語メッセージとする。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, not_found, conflict, system
	Action   string // クライアント向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeEmptyBody            = "EMPTY_BODY"
	ErrCodeTitleRequired        = "TITLE_REQUIRED"
	ErrCodeNameRequired         = "NAME_REQUIRED"
	ErrCodeInvalidItemType      = "INVALID_ITEM_TYPE"
	ErrCodeInvalidField         = "INVALID_FIELD"
	ErrCodeReminderFields       = "REMINDER_FIELDS_REQUIRED"
	ErrCodeInvalidScheduledTime = "INVALID_SCHEDULED_TIME"
	ErrCodeItemNotFound         = "ITEM_NOT_FOUND"
	ErrCodeTagNotFound          = "TAG_NOT_FOUND"
	ErrCodeReminderNotFound     = "REMINDER_NOT_FOUND"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeDuplicateUser        = "DUPLICATE_USER"
)

// エラーカテゴリ
const (
	CategoryValidation = "validation"
	CategoryNotFound   = "not_found"
	CategoryConflict   = "conflict"
	CategorySystem     = "system"
)

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "Invalid JSON body",
		Category: CategoryValidation,
		Action:   "Send a JSON object as the request body.",
	}
}

// NewEmptyBodyError は更新リクエストにフィールドが1つも含まれない場合のエラーを生成する。
func NewEmptyBodyError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyBody,
		Message:  "No data provided",
		Category: CategoryValidation,
		Action:   "Include at least one field to update.",
	}
}

// NewTitleRequiredError はタイトル未指定エラーを生成する。
func NewTitleRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTitleRequired,
		Message:  "Title is required",
		Category: CategoryValidation,
		Action:   "Provide a non-empty title.",
	}
}

// NewNameRequiredError はユーザー名未指定エラーを生成する。
func NewNameRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeNameRequired,
		Message:  "Name is required",
		Category: CategoryValidation,
		Action:   "Provide a non-empty name.",
	}
}

// NewInvalidItemTypeError は未定義のアイテム種別エラーを生成する。
func NewInvalidItemTypeError(itemType string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidItemType,
		Message:  fmt.Sprintf("Invalid item type: %s", itemType),
		Category: CategoryValidation,
		Action:   "Use one of: task, reminder.",
	}
}

// NewInvalidFieldError はフィールドの型が不正な場合のエラーを生成する。
func NewInvalidFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidField,
		Message:  fmt.Sprintf("Invalid value for field: %s", field),
		Category: CategoryValidation,
		Action:   "Check the field type in the request body.",
	}
}

// NewReminderFieldsRequiredError はリマインダー作成時の必須フィールド不足エラーを生成する。
func NewReminderFieldsRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeReminderFields,
		Message:  "itemId, telegramChatId, and scheduledTime are required",
		Category: CategoryValidation,
		Action:   "Provide itemId, telegramChatId and scheduledTime.",
	}
}

// NewInvalidScheduledTimeError はscheduledTimeのパース失敗エラーを生成する。
func NewInvalidScheduledTimeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidScheduledTime,
		Message:  "Invalid scheduledTime format",
		Category: CategoryValidation,
		Action:   "Use an ISO-8601 timestamp such as 2030-01-01T09:00:00Z.",
	}
}

// NewItemNotFoundError はアイテム未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  "Item not found",
		Category: CategoryNotFound,
		Action:   fmt.Sprintf("Check the item id: %s", itemID),
	}
}

// NewTagNotFoundError はタグ未検出エラーを生成する。
func NewTagNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeTagNotFound,
		Message:  "Tag not found",
		Category: CategoryNotFound,
		Action:   fmt.Sprintf("Check the tag name: %s", name),
	}
}

// NewReminderNotFoundError はリマインダー未検出エラーを生成する。
func NewReminderNotFoundError(reminderID string) *APIError {
	return &APIError{
		Code:     ErrCodeReminderNotFound,
		Message:  "Reminder not found",
		Category: CategoryNotFound,
		Action:   fmt.Sprintf("Check the reminder id: %s", reminderID),
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: CategoryNotFound,
		Action:   fmt.Sprintf("Check the user id: %s", userID),
	}
}

// NewDuplicateUserError は同一IDのユーザーが既に存在する場合のエラーを生成する。
func NewDuplicateUserError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  "User with this ID already exists",
		Category: CategoryConflict,
		Action:   "Omit the id to let the server generate one.",
	}
}
