package editing

import "strings"

// AddImage appends an image to a stop of the open table. The url is
// required; caption and description are optional.
func (s *Session) AddImage(parentID, rowID int64, img Image) (FlexRow, error) {
	img.URL = strings.TrimSpace(img.URL)
	if img.URL == "" {
		return FlexRow{}, ErrInvalidImage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err := s.requireOpen(parentID); err != nil {
		return FlexRow{}, err
	}
	i := s.flexIndex(parentID, rowID)
	if i < 0 {
		return FlexRow{}, ErrNotFound
	}
	row := &s.flex[parentID][i]
	images := make([]Image, 0, len(row.Images)+1)
	images = append(images, row.Images...)
	row.Images = append(images, img)
	s.markFlex(parentID, rowID)
	return cloneFlexRow(*row), nil
}

// RequestImageRemove returns a ticket that Confirm redeems to remove the
// image at index.
func (s *Session) RequestImageRemove(parentID, rowID int64, index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err := s.requireOpen(parentID); err != nil {
		return "", err
	}
	i := s.flexIndex(parentID, rowID)
	if i < 0 || index < 0 || index >= len(s.flex[parentID][i].Images) {
		return "", ErrNotFound
	}
	return s.addPending(pendingDelete{kind: removeImage, parentID: parentID, rowID: rowID, index: index}), nil
}

func (s *Session) removeImageAt(parentID, rowID int64, index int) error {
	if err := s.requireOpen(parentID); err != nil {
		return err
	}
	i := s.flexIndex(parentID, rowID)
	if i < 0 {
		return ErrNotFound
	}
	row := &s.flex[parentID][i]
	if index < 0 || index >= len(row.Images) {
		return ErrNotFound
	}
	images := make([]Image, 0, len(row.Images)-1)
	images = append(images, row.Images[:index]...)
	row.Images = append(images, row.Images[index+1:]...)
	s.markFlex(parentID, rowID)
	return nil
}

// SetPowerMode sets the machine schedule of a stop of the open table.
func (s *Session) SetPowerMode(parentID, rowID int64, mode string) (FlexRow, error) {
	if !ValidPowerMode(mode) {
		return FlexRow{}, ErrInvalidPowerMode
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err := s.requireOpen(parentID); err != nil {
		return FlexRow{}, err
	}
	i := s.flexIndex(parentID, rowID)
	if i < 0 {
		return FlexRow{}, ErrNotFound
	}
	row := &s.flex[parentID][i]
	row.PowerMode = mode
	s.markFlex(parentID, rowID)
	return cloneFlexRow(*row), nil
}
