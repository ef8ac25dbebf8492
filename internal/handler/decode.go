package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/hitoshi/remindo/internal/model"
	"github.com/hitoshi/remindo/internal/normalize"
)

// maxBodyBytes はJSONリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// jsonObject はキーの有無を保持したままデコードしたリクエストボディ。
type jsonObject map[string]json.RawMessage

// decodeObject はリクエストボディをJSONオブジェクトとしてデコードする。
// 空のボディは空オブジェクトとして扱う。オブジェクト以外、またはオブジェクトの後に
// 続くデータがある場合はINVALID_REQUESTエラー。
func decodeObject(w http.ResponseWriter, r *http.Request) (jsonObject, error) {
	var obj jsonObject
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(&obj)
	if errors.Is(err, io.EOF) {
		return jsonObject{}, nil
	}
	if err != nil {
		return nil, model.NewInvalidRequestError()
	}
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, model.NewInvalidRequestError()
	}
	if obj == nil {
		// ボディがnullの場合
		return jsonObject{}, nil
	}
	return obj, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// optString は文字列フィールドを三値で取り出す。文字列・null以外はINVALID_FIELD。
func (o jsonObject) optString(key string) (model.Optional[string], error) {
	raw, ok := o[key]
	if !ok {
		return model.Optional[string]{}, nil
	}
	if isNull(raw) {
		return model.Null[string](), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return model.Optional[string]{}, model.NewInvalidFieldError(key)
	}
	return model.Some(s), nil
}

// optBool は真偽値フィールドを三値で取り出す。
func (o jsonObject) optBool(key string) (model.Optional[bool], error) {
	raw, ok := o[key]
	if !ok {
		return model.Optional[bool]{}, nil
	}
	if isNull(raw) {
		return model.Null[bool](), nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return model.Optional[bool]{}, model.NewInvalidFieldError(key)
	}
	return model.Some(b), nil
}

// optChatID は配信先IDを取り出す。文字列と数値の両方を受け付ける。
func (o jsonObject) optChatID(key string) (model.Optional[string], error) {
	raw, ok := o[key]
	if !ok {
		return model.Optional[string]{}, nil
	}
	if isNull(raw) {
		return model.Null[string](), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return model.Some(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return model.Some(n.String()), nil
		}
	}
	return model.Optional[string]{}, model.NewInvalidFieldError(key)
}

// optTags はタグを取り出す。カンマ区切り文字列と文字列配列の両方を受け付ける。
func (o jsonObject) optTags(key string) (model.Optional[[]string], error) {
	raw, ok := o[key]
	if !ok {
		return model.Optional[[]string]{}, nil
	}
	if isNull(raw) {
		return model.Null[[]string](), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return model.Some(normalize.Tags(s)), nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return model.Optional[[]string]{}, model.NewInvalidFieldError(key)
	}
	return model.Some(normalize.TagList(list)), nil
}

// itemPatchFromJSON はJSONオブジェクトからアイテムのパッチを組み立てる。
// scheduledAtはdatetimeの別名として受け付け、両方ある場合はdatetimeを優先する。
func itemPatchFromJSON(o jsonObject) (model.ItemPatch, error) {
	var (
		p   model.ItemPatch
		err error
	)
	if p.ID, err = o.optString("id"); err != nil {
		return p, err
	}
	itemType, err := o.optString("type")
	if err != nil {
		return p, err
	}
	p.Type = model.Optional[model.ItemType]{Set: itemType.Set, Null: itemType.Null, Value: model.ItemType(itemType.Value)}
	if p.Title, err = o.optString("title"); err != nil {
		return p, err
	}
	if p.Details, err = o.optString("details"); err != nil {
		return p, err
	}
	if p.Tags, err = o.optTags("tags"); err != nil {
		return p, err
	}
	if p.TelegramChatID, err = o.optChatID("telegramChatId"); err != nil {
		return p, err
	}
	if p.Datetime, err = o.optString("datetime"); err != nil {
		return p, err
	}
	if !p.Datetime.Set {
		if p.Datetime, err = o.optString("scheduledAt"); err != nil {
			return p, err
		}
	}
	if p.Deadline, err = o.optString("deadline"); err != nil {
		return p, err
	}
	if p.Completed, err = o.optBool("completed"); err != nil {
		return p, err
	}
	return p, nil
}

// reminderPatchFromJSON はJSONオブジェクトからリマインダーのパッチを組み立てる。
func reminderPatchFromJSON(o jsonObject) (model.ReminderPatch, error) {
	var (
		p   model.ReminderPatch
		err error
	)
	if p.ID, err = o.optString("id"); err != nil {
		return p, err
	}
	if p.ItemID, err = o.optString("itemId"); err != nil {
		return p, err
	}
	if p.TelegramChatID, err = o.optChatID("telegramChatId"); err != nil {
		return p, err
	}
	if p.ScheduledTime, err = o.optString("scheduledTime"); err != nil {
		return p, err
	}
	if p.Sent, err = o.optBool("sent"); err != nil {
		return p, err
	}
	return p, nil
}

// userPatchFromJSON はJSONオブジェクトからユーザーのパッチを組み立てる。
func userPatchFromJSON(o jsonObject) (model.UserPatch, error) {
	var (
		p   model.UserPatch
		err error
	)
	if p.ID, err = o.optString("id"); err != nil {
		return p, err
	}
	if p.Name, err = o.optString("name"); err != nil {
		return p, err
	}
	if p.Email, err = o.optString("email"); err != nil {
		return p, err
	}
	if p.TelegramChatID, err = o.optChatID("telegramChatId"); err != nil {
		return p, err
	}
	if p.Timezone, err = o.optString("timezone"); err != nil {
		return p, err
	}
	return p, nil
}
