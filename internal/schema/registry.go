// Package schema はLogs APIリソースの静的スキーマレジストリを提供する。
// リソース名からフィールド一覧への対応と、エクスポート可能なリソースの集合を保持する。
package schema

import "sort"

// eventsFields はeventsリソースのフィールド一覧。
// AppMetrica Logs APIのエクスポート仕様に準拠する。
var eventsFields = []string{
	"application_id",
	"ios_ifa",
	"ios_ifv",
	"android_id",
	"google_aid",
	"windows_aid",
	"profile_id",
	"os_name",
	"os_version",
	"device_manufacturer",
	"device_model",
	"device_type",
	"device_locale",
	"app_version_name",
	"app_package_name",
	"event_name",
	"event_json",
	"event_datetime",
	"event_timestamp",
	"event_receive_datetime",
	"event_receive_timestamp",
	"connection_type",
	"operator_name",
	"mcc",
	"mnc",
	"country_iso_code",
	"city",
	"appmetrica_device_id",
	"installation_id",
	"session_id",
}

// installationsFields はinstallationsリソースのフィールド一覧。
// AppMetrica Logs APIのエクスポート仕様に準拠する。
var installationsFields = []string{
	"application_id",
	"click_datetime",
	"click_id",
	"click_ipv6",
	"click_timestamp",
	"click_url_parameters",
	"click_user_agent",
	"profile_id",
	"publisher_id",
	"publisher_name",
	"tracker_name",
	"tracking_id",
	"install_datetime",
	"install_ipv6",
	"install_receive_datetime",
	"install_receive_timestamp",
	"install_timestamp",
	"is_reattribution",
	"is_reinstallation",
	"match_type",
	"appmetrica_device_id",
	"city",
	"connection_type",
	"country_iso_code",
	"device_locale",
	"device_manufacturer",
	"device_model",
	"device_type",
	"google_aid",
	"ios_ifa",
	"ios_ifv",
	"windows_aid",
	"os_name",
	"os_version",
	"mcc",
	"mnc",
	"operator_name",
	"app_package_name",
	"app_version_name",
}

// resourceFields はリソース名から組み込みフィールド定義への対応。
// プロセス起動時に定義され、以降変更されない。
var resourceFields = map[string][]string{
	"events":        eventsFields,
	"installations": installationsFields,
}

// exportableResources はLogs APIがエクスポートをサポートするリソース名の集合。
// 組み込みスキーマの有無とは独立に管理する（スキーマのないリソースは
// fieldsの明示指定が必要になるだけで、エクスポート自体は可能）。
var exportableResources = map[string]struct{}{
	"installations":    {},
	"events":           {},
	"revenue_events":   {},
	"ecommerce_events": {},
	"deeplinks":        {},
	"clicks":           {},
	"postbacks":        {},
	"profiles":         {},
	"push_tokens":      {},
	"crashes":          {},
	"errors":           {},
	"sessions_starts":  {},
}

// dateRangeExemptResources は日付範囲の指定が不要なリソースの集合。
// これら以外のリソースはdate_since/date_untilの両方が必須になる。
var dateRangeExemptResources = map[string]struct{}{
	"profiles":    {},
	"push_tokens": {},
}

// Fields はリソースの組み込みフィールド一覧を返す。
// 定義がない場合は falseを返す。順序は定義順を保持する。
func Fields(resource string) ([]string, bool) {
	fields, ok := resourceFields[resource]
	if !ok {
		return nil, false
	}
	// 呼び出し元による変更からレジストリを守るためコピーを返す
	out := make([]string, len(fields))
	copy(out, fields)
	return out, true
}

// IsExportable はリソースがLogs APIでエクスポート可能かを返す。
func IsExportable(resource string) bool {
	_, ok := exportableResources[resource]
	return ok
}

// IsDateRangeExempt はリソースが日付範囲の指定を免除されているかを返す。
func IsDateRangeExempt(resource string) bool {
	_, ok := dateRangeExemptResources[resource]
	return ok
}

// Resources はエクスポート可能なリソース名をソート済みで返す。
// CLIのヘルプ表示とAPIのリソース一覧エンドポイントで使用する。
func Resources() []string {
	out := make([]string, 0, len(exportableResources))
	for name := range exportableResources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
