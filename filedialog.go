package main

import "github.com/wailsapp/wails/v3/pkg/application"

const videoFilePattern = "*.mp4;*.m4v;*.mkv;*.mov;*.avi;*.webm;*.ts;*.mts;*.flv;*.wmv;*.mpg;*.mpeg;*.3gp;*.sdp"

func videoFilePicker(app *application.App) FilePicker {
	return func() (string, error) {
		return app.Dialog.OpenFile().
			SetTitle("Open video").
			CanChooseFiles(true).
			CanChooseDirectories(false).
			AddFilter("Video files", videoFilePattern).
			AddFilter("All files", "*.*").
			PromptForSingleSelection()
	}
}
