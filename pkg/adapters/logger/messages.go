package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Recorder level messages (info)
		"Recording %s...":                "%s を録画中...",
		"Output saved to %s":             "出力を %s に保存しました",
		"Interrupted, shutting down...":  "中断されました。シャットダウン中...",
		"Launching browser":              "ブラウザを起動中",
		"Navigating to %s":               "%s へ移動中",
		"Starting screencast":            "スクリーンキャストを開始",
		"Captured %d frames, dropped %d": "%d フレームをキャプチャ、%d フレームを破棄しました",
		"Recording completed in %d ms":   "録画が %d ms で完了しました",
		"Video duration: %.2fs":          "動画の長さ: %.2f 秒",
		"Encoder progress: %s":           "エンコード進捗: %s",
		"Record limit reached":           "録画時間の上限に達しました",
		"Failed to save debug frame: %s": "デバッグフレームの保存に失敗しました: %s",
		"Stopping capture source failed: %s": "キャプチャソースの停止に失敗しました: %s",

		// Capture component
		"Screencast started with JPEG quality %d": "JPEG 品質 %d でスクリーンキャストを開始しました",
		"Screencast stopped":                      "スクリーンキャストを停止しました",
		"Screencast for new tab failed: %s":       "新しいタブのスクリーンキャストに失敗しました: %s",
		"Follow-new-tab is not supported by the chromedp source": "chromedp ソースは新しいタブの追跡に対応していません",
		"Discarding undecodable frame: %s":                       "デコードできないフレームを破棄します: %s",
		"Stopping screencast failed: %s":                         "スクリーンキャストの停止に失敗しました: %s",
		"Frame acknowledgment failed: %s":                        "フレームの確認応答に失敗しました: %s",

		// Assembly component
		"Dropping frame at %.3fs: %s":                        "%.3f 秒のフレームを破棄します: %s",
		"Timed out waiting for in-flight frame, finalizing anyway": "処理中のフレームの待機がタイムアウトしました。終了処理を続行します",
		"Final drain failed: %s":                             "最終排出に失敗しました: %s",

		// Encoder feed component
		"Starting ffmpeg %s":                       "ffmpeg を開始します %s",
		"Ignoring end-of-file condition after stop": "停止後の end-of-file 状態を無視します",
		"Encoder feed failed: %s":                  "エンコーダーへの供給に失敗しました: %s",

		// Errors
		"Failed to launch browser: %s": "ブラウザの起動に失敗しました: %s",
		"Failed to navigate: %s":       "ページ移動に失敗しました: %s",
		"Failed to write output: %s":   "出力の書き込みに失敗しました: %s",
	})
}
